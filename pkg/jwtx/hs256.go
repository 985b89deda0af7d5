package jwtx

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// HS256Codec signs and verifies JWTs using a shared HMAC-SHA256 secret.
// It implements both Signer and Verifier since the same key does both jobs.
type HS256Codec struct {
	key    []byte
	issuer string
	alg    string
}

// NewHS256 creates a codec from a raw secret. The secret should carry at
// least 256 bits of entropy.
func NewHS256(secret []byte, issuer string) *HS256Codec {
	return &HS256Codec{
		key:    secret,
		issuer: issuer,
		alg:    jwt.SigningMethodHS256.Alg(),
	}
}

func (c *HS256Codec) Alg() string { return c.alg }

// Sign takes your claims and turns them into a signed JWT string.
func (c *HS256Codec) Sign(claims Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(c.key)
}

// Verify validates the JWT string and returns its parsed Claims.
func (c *HS256Codec) Verify(tokenStr string) (Claims, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{c.alg}))

	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		// Make sure it's actually HMAC (it should be, watch it not be)
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrAlgMismatch
		}
		return c.key, nil
	})
	if err != nil {
		return Claims{}, mapParseError(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Claims{}, ErrInvalidClaim
	}

	// Now check all the claim requirements
	if err := claims.ValidateIssuer(c.issuer); err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateExpiry(); err != nil {
		return Claims{}, err
	}

	return *claims, nil
}

// mapParseError folds the library's error tree into our sentinel errors so
// callers can switch on errors.Is without importing golang-jwt.
func mapParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return ErrNotYetValid
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrInvalidSig
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrMalformed
	default:
		return ErrInvalidClaim
	}
}
