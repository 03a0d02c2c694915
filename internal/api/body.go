package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net"
	"net/http"
	"net/url"
	"strings"
)

var errInvalidJSON = errors.New("invalid JSON body")

var emptyObject = json.RawMessage(`{}`)

// readWebhookBody turns an inbound webhook body into JSON. JSON bodies are
// kept as sent, form bodies become an object of first values, text and XML
// bodies become a JSON string. Anything else, or nothing, is an empty object.
func readWebhookBody(w http.ResponseWriter, r *http.Request) (json.RawMessage, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, errBodyTooLarge
		}
		return nil, err
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return emptyObject, nil
	}

	mediaType := ""
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mediaType, _, _ = mime.ParseMediaType(ct)
	}

	switch {
	case mediaType == "application/json" || strings.HasSuffix(mediaType, "+json"):
		if !json.Valid(raw) {
			return nil, errInvalidJSON
		}
		return raw, nil

	case mediaType == "":
		if json.Valid(raw) {
			return raw, nil
		}
		return emptyObject, nil

	case mediaType == "application/x-www-form-urlencoded":
		return formToJSON(string(raw))

	case strings.HasPrefix(mediaType, "text/"), strings.HasSuffix(mediaType, "xml"):
		return json.Marshal(string(raw))

	default:
		return emptyObject, nil
	}
}

// formToJSON encodes a urlencoded body as an object of first values, keeping
// the keys in the order the caller sent them.
func formToJSON(raw string) (json.RawMessage, error) {
	seen := make(map[string]bool)
	var buf bytes.Buffer
	buf.WriteByte('{')
	for _, pair := range strings.Split(raw, "&") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(k)
		if err != nil {
			return nil, err
		}
		value, err := url.QueryUnescape(v)
		if err != nil {
			return nil, err
		}
		if seen[key] {
			continue
		}
		seen[key] = true

		if len(seen) > 1 {
			buf.WriteByte(',')
		}
		kb, _ := json.Marshal(key)
		vb, _ := json.Marshal(value)
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// sourceAddr is the caller's IP without port. realIP has already applied
// forwarding headers from trusted proxies.
func sourceAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
