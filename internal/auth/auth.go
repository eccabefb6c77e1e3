// Package auth verifies tokens issued against the gateway's key and re-signs
// the same claims for a selected SFU with that node's key.
package auth

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMissingToken is returned when no Authorization header was sent.
	ErrMissingToken = errors.New("missing authorization token")
	// ErrInvalidToken covers malformed headers, bad signatures and decode failures.
	ErrInvalidToken = errors.New("invalid token")
	// ErrSigningFailed is returned when re-encoding claims fails.
	ErrSigningFailed = errors.New("failed to sign token")
)

// Claims is the token payload shared between the issuer, the gateway and the
// SFUs. The gateway treats everything except iss as opaque: a re-signed token
// carries exactly these claims, only the signature changes.
type Claims struct {
	// Issuer identifies the caller (channel UUID).
	Issuer string `json:"iss"`
	// Key is an optional encryption key for recording.
	Key string `json:"key,omitempty"`
	// ExpiresAt and IssuedAt are optional Unix timestamps.
	ExpiresAt *jwt.NumericDate `json:"exp,omitempty"`
	IssuedAt  *jwt.NumericDate `json:"iat,omitempty"`
}

func (c *Claims) GetExpirationTime() (*jwt.NumericDate, error) { return c.ExpiresAt, nil }
func (c *Claims) GetIssuedAt() (*jwt.NumericDate, error)       { return c.IssuedAt, nil }
func (c *Claims) GetNotBefore() (*jwt.NumericDate, error)      { return nil, nil }
func (c *Claims) GetIssuer() (string, error)                   { return c.Issuer, nil }
func (c *Claims) GetSubject() (string, error)                  { return "", nil }
func (c *Claims) GetAudience() (jwt.ClaimStrings, error)       { return nil, nil }

// Verify decodes and checks a token with the given HMAC secret.
//
// Expiration policy: exp is validated when the claim is present but is never
// required, so tokens without time-based claims stay valid. Changing this
// changes the gateway's security posture; keep it in sync with the issuer.
func Verify(token string, key []byte) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		// Only HMAC: the roster carries symmetric secrets.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return key, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	log.Printf("verified token iss=%s", claims.Issuer)
	return claims, nil
}

// Sign encodes the claims as an HS256 token under the given secret.
func Sign(claims *Claims, key []byte) (string, error) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSigningFailed, err)
	}
	return token, nil
}

// ExtractToken pulls the token out of an Authorization-style header value of
// the form "<scheme> <token>". The scheme word is not validated.
func ExtractToken(headerValue string) (string, error) {
	if headerValue == "" {
		return "", ErrMissingToken
	}
	_, token, found := strings.Cut(headerValue, " ")
	if !found {
		return "", fmt.Errorf("%w: expected '<scheme> <token>' format", ErrInvalidToken)
	}
	return token, nil
}

// DecodeKey decodes a base64 key, accepting both the URL-safe-no-padding and
// the standard alphabet (issuers differ on which one they emit).
func DecodeKey(key string) ([]byte, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(key, "="))
	if err == nil {
		return decoded, nil
	}
	decoded, err = base64.StdEncoding.DecodeString(key)
	if err != nil {
		return nil, fmt.Errorf("invalid key encoding: %w", err)
	}
	return decoded, nil
}
