package auth

import (
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Scope is the access level granted by a token.
type Scope string

const (
	ScopeRead    Scope = "read"
	ScopeControl Scope = "control"
)

// DefaultTTL is used when GenerateAccessToken is given a zero TTL.
const DefaultTTL = 24 * time.Hour

// Allows reports whether s grants required. control implies read.
func (s Scope) Allows(required Scope) bool {
	switch s {
	case ScopeControl:
		return required == ScopeControl || required == ScopeRead
	case ScopeRead:
		return required == ScopeRead
	default:
		return false
	}
}

// Valid reports whether s is a known scope.
func (s Scope) Valid() bool {
	return s == ScopeRead || s == ScopeControl
}

// Claims extends the registered JWT claims with the bridge scope.
type Claims struct {
	jwt.RegisteredClaims
	Scope Scope `json:"scope"`
}

// GenerateAccessToken signs an HS256 token for subject.
func GenerateAccessToken(subject string, scope Scope, secret, issuer string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", ErrNoSecret
	}
	if !scope.Valid() {
		return "", fmt.Errorf("unknown scope %q", scope)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
		Scope: scope,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("signing access token: %w", err)
	}
	return signed, nil
}

// ParseToken validates signature, expiry, issuer (when set) and the
// required fields, returning the claims.
func ParseToken(tokenString, secret, issuer string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(_ *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrTokenInvalid)
	}
	if !claims.Scope.Valid() {
		return nil, fmt.Errorf("%w: missing scope", ErrTokenInvalid)
	}
	return claims, nil
}

// VerifySharedToken compares a presented token with the expected one in
// constant time. An empty expected token accepts anything.
func VerifySharedToken(presented, expected string) bool {
	if expected == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(expected)) == 1
}
