package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v5"
	"github.com/vasiliy-maslov/storefront/internal/session"
)

var ErrInvalidToken = errors.New("invalid token")

type claims struct {
	SessionID string       `json:"sid"`
	Role      session.Role `json:"role"`
	jwt.RegisteredClaims
}

type tokenIssuer struct {
	secret []byte
}

func (t tokenIssuer) sign(s *session.Session) (string, error) {
	c := claims{
		SessionID: s.ID.String(),
		Role:      s.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("auth: failed to sign token: %w", err)
	}
	return signed, nil
}

// parse verifies the signature and expiry and returns the session id.
func (t tokenIssuer) parse(raw string) (uuid.UUID, error) {
	var c claims
	_, err := jwt.ParseWithClaims(raw, &c, func(*jwt.Token) (any, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	id, err := uuid.FromString(c.SessionID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: bad session id", ErrInvalidToken)
	}
	return id, nil
}
