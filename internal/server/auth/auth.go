// Package auth verifies bearer tokens presented at connection establishment
// and binds a salon identity to the connection.
package auth

import (
	"github.com/convivial/salon/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Identity is the verified result of authentication. It is immutable for the
// lifetime of the connection it was established on.
type Identity struct {
	UserID   string
	Username string
}

// Claims carried by the access tokens minted by the external auth service.
type Claims struct {
	jwt.RegisteredClaims
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// Authenticator validates bearer tokens. In dev mode it instead accepts
// caller-supplied identity claims; that path must never be enabled in a
// production posture.
type Authenticator struct {
	secret  []byte
	devMode bool
}

func NewAuthenticator(secretKey string, devMode bool) *Authenticator {
	return &Authenticator{secret: []byte(secretKey), devMode: devMode}
}

// DevMode reports whether unverified identity claims are accepted.
func (a *Authenticator) DevMode() bool {
	return a.devMode
}

// Verify checks the token signature and expiry and returns the identity it
// carries. Any failure maps to common.ErrUnauthenticated.
func (a *Authenticator) Verify(tokenString string) (Identity, error) {
	if tokenString == "" {
		return Identity{}, common.ErrUnauthenticated
	}

	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, common.ErrInvalidToken
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return Identity{}, common.ErrUnauthenticated
	}

	if claims.UserID == "" {
		return Identity{}, common.ErrUnauthenticated
	}

	return Identity{UserID: claims.UserID, Username: claims.Username}, nil
}

// VerifyOrClaim is the handshake entry point. In dev mode a caller-supplied
// identity is accepted as-is (with placeholders when absent); otherwise the
// token must verify.
func (a *Authenticator) VerifyOrClaim(tokenString, claimedUserID, claimedUsername string) (Identity, error) {
	if a.devMode {
		id := Identity{UserID: claimedUserID, Username: claimedUsername}
		if id.UserID == "" {
			id.UserID = "dev-user"
		}
		if id.Username == "" {
			id.Username = "Developer"
		}
		return id, nil
	}

	return a.Verify(tokenString)
}
