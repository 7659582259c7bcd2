package notify

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/medibook/realtime/internal/slogging"
)

// CredentialSource supplies the session token and user id the connection is
// scoped to. Credentials are re-read on every connect attempt so a refreshed
// token is picked up by the next reconnect.
type CredentialSource interface {
	// Credentials returns the bearer token and user id for the current
	// session. ok is false while the user is not authenticated.
	Credentials() (token string, userID string, ok bool)
}

// StaticCredentials is a fixed token and user id pair
type StaticCredentials struct {
	Token  string
	UserID string
}

// Credentials implements CredentialSource
func (c StaticCredentials) Credentials() (string, string, bool) {
	return c.Token, c.UserID, c.Token != "" && c.UserID != ""
}

// BearerTokenCredentials derives the user id from the bearer token's JWT
// subject claim. The token is decoded without signature verification; the
// server is the party that verifies it, the client only needs the subject to
// address its notification socket.
type BearerTokenCredentials struct {
	Token string
}

// Credentials implements CredentialSource
func (c BearerTokenCredentials) Credentials() (string, string, bool) {
	if c.Token == "" {
		return "", "", false
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(c.Token, claims); err != nil {
		slogging.Get().Warn("Unable to decode session token: %v", err)
		return "", "", false
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		slogging.Get().Warn("Session token has no subject claim")
		return "", "", false
	}

	return c.Token, sub, true
}
