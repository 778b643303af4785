package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// InviteTokenSigner issues signed tokens embedded in invitation links so that
// an accept request can be tied to a specific invitation and recipient email
// without a round trip to the database.
type InviteTokenSigner struct {
	secret []byte
}

func NewInviteTokenSigner(secret string) *InviteTokenSigner {
	return &InviteTokenSigner{secret: []byte(secret)}
}

type inviteClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

func (s *InviteTokenSigner) Sign(invitationId uuid.UUID, email string, expiresAt time.Time) (string, error) {
	claims := inviteClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   invitationId.String(),
			IssuedAt:  jwt.NewNumericDate(time.Now().UTC()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("error signing invitation token: %w", err)
	}
	return signed, nil
}

// Verify returns the invitation id and recipient email encoded in the token.
// Expired tokens fail verification, though the invitation row's expiry is
// still the authoritative check.
func (s *InviteTokenSigner) Verify(tokenStr string) (uuid.UUID, string, error) {
	var claims inviteClaims
	_, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("invalid invitation token: %w", err)
	}

	invitationId, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("invalid invitation id in token: %w", err)
	}

	return invitationId, claims.Email, nil
}
