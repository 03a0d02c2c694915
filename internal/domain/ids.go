package domain

import (
	"github.com/google/uuid"
	"go.jetify.com/typeid/v2"
)

// Target ids double as the webhook secret, so they are random v4 UUIDs.
func NewTargetID() string { return uuid.NewString() }

func NewSenderID() string { return uuid.NewString() }

func NewPayloadID() string { return mustTypeID("pl") }

func NewLogID() string { return mustTypeID("log") }

func mustTypeID(prefix string) string {
	id, err := typeid.Generate(prefix)
	if err != nil {
		panic("domain: generating " + prefix + " id: " + err.Error())
	}
	return id.String()
}
