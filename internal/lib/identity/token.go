// Package identity verifies session tokens issued by the account service and
// turns them into the actor the relay works with.
package identity

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"QuoteChat/entity"
)

// Claims carried by a session token.
type Claims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Name     string `json:"name,omitempty"`
	Staff    bool   `json:"staff"`
	jwt.RegisteredClaims
}

type Verifier struct {
	secret []byte
	issuer string
}

func NewVerifier(secret, issuer string) *Verifier {
	return &Verifier{
		secret: []byte(secret),
		issuer: issuer,
	}
}

// Issue signs a token for actor. The account service owns issuing in
// production; this is used by tooling and tests.
func (v *Verifier) Issue(actor entity.Actor, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:   actor.ID,
		Username: actor.Username,
		Name:     actor.Name,
		Staff:    actor.IsStaff,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    v.issuer,
			Subject:   fmt.Sprintf("user_%d", actor.ID),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify validates the token signature, expiry and issuer.
func (v *Verifier) Verify(tokenString string) (*entity.Actor, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	actor := &entity.Actor{
		ID:       claims.UserID,
		Username: claims.Username,
		Name:     claims.Name,
		IsStaff:  claims.Staff,
	}
	if err := actor.Bind(nil); err != nil {
		return nil, fmt.Errorf("invalid token subject: %w", err)
	}
	return actor, nil
}
