package domain

import "fmt"

// Sender is an SMTP account notifications are sent through.
type Sender struct {
	ID        string `json:"id"`
	FromName  string `json:"from_name"`
	FromEmail string `json:"from_email"`
	Host      string `json:"host"`
	Port      int    `json:"port"`
	User      string `json:"user"`
	Secret    string `json:"secret,omitempty"`
	Secure    bool   `json:"secure"`
}

// Validate checks the fields needed to open an SMTP session.
func (s Sender) Validate() error {
	if s.Host == "" {
		return fmt.Errorf("host is required")
	}
	if s.FromEmail == "" {
		return fmt.Errorf("from_email is required")
	}
	if s.Port < 0 || s.Port > 65535 {
		return fmt.Errorf("port %d out of range", s.Port)
	}
	return nil
}

// RedactedSecret replaces the secret in API responses. Sending it back on
// update keeps the stored secret.
const RedactedSecret = "********"

// Redacted returns a copy safe to show to API clients.
func (s Sender) Redacted() Sender {
	if s.Secret != "" {
		s.Secret = RedactedSecret
	}
	return s
}

type SenderRequest struct {
	FromName  *string `json:"from_name,omitempty"`
	FromEmail *string `json:"from_email,omitempty"`
	Host      *string `json:"host,omitempty"`
	Port      *int    `json:"port,omitempty"`
	User      *string `json:"user,omitempty"`
	Secret    *string `json:"secret,omitempty"`
	Secure    *bool   `json:"secure,omitempty"`
}

// Apply copies the set fields onto s.
func (r SenderRequest) Apply(s *Sender) {
	if r.FromName != nil {
		s.FromName = *r.FromName
	}
	if r.FromEmail != nil {
		s.FromEmail = *r.FromEmail
	}
	if r.Host != nil {
		s.Host = *r.Host
	}
	if r.Port != nil {
		s.Port = *r.Port
	}
	if r.User != nil {
		s.User = *r.User
	}
	if r.Secret != nil && *r.Secret != RedactedSecret {
		s.Secret = *r.Secret
	}
	if r.Secure != nil {
		s.Secure = *r.Secure
	}
}
