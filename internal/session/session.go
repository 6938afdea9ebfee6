// Package session manages the authenticated session against a hosting platform:
// validating tokens, persisting the result and restoring it on startup.
package session

import "time"

// Session is the credential and authentication status used for remote calls.
type Session struct {
	Token           string    `json:"token"`
	IsAuthenticated bool      `json:"isAuthenticated"`
	ID              string    `json:"id,omitempty"`
	Username        string    `json:"username,omitempty"`
	UpdatedAt       time.Time `json:"updatedAt,omitempty"`
}

// Redacted returns a copy safe to show or log: the token is masked.
func (s Session) Redacted() Session {
	if s.Token != "" {
		s.Token = maskToken(s.Token)
	}
	return s
}

func maskToken(token string) string {
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "****" + token[len(token)-4:]
}
