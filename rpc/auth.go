package rpc

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"tokenvesting/crypto"
)

var (
	errMissingToken = errors.New("missing bearer token")
	errAuthDisabled = errors.New("caller authentication not configured")
)

// AuthConfig configures HS256 caller tokens. The subject claim carries the
// caller address.
type AuthConfig struct {
	HMACSecret string
	Issuer     string
	Audience   string
	ClockSkew  time.Duration
}

// Authenticator resolves the caller identity of mutating requests.
type Authenticator struct {
	cfg    AuthConfig
	secret []byte
}

func NewAuthenticator(cfg AuthConfig) *Authenticator {
	if cfg.ClockSkew <= 0 {
		cfg.ClockSkew = 30 * time.Second
	}
	return &Authenticator{cfg: cfg, secret: []byte(strings.TrimSpace(cfg.HMACSecret))}
}

// Caller validates the bearer token on r and returns the subject address.
func (a *Authenticator) Caller(r *http.Request) ([20]byte, error) {
	if a == nil || len(a.secret) == 0 {
		return [20]byte{}, errAuthDisabled
	}
	raw := extractBearer(r.Header.Get("Authorization"))
	if raw == "" {
		return [20]byte{}, errMissingToken
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(a.cfg.ClockSkew),
		jwt.WithExpirationRequired(),
	}
	if a.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.cfg.Issuer))
	}
	if a.cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(a.cfg.Audience))
	}
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return [20]byte{}, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return [20]byte{}, errors.New("invalid token")
	}
	caller, err := crypto.ParseAddress(claims.Subject)
	if err != nil {
		return [20]byte{}, fmt.Errorf("invalid token subject: %w", err)
	}
	return caller, nil
}

// IssueCallerToken signs an HS256 token asserting caller as subject.
func IssueCallerToken(secret, issuer, audience string, caller [20]byte, ttl time.Duration) (string, error) {
	key := strings.TrimSpace(secret)
	if key == "" {
		return "", errors.New("rpc: token secret required")
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   crypto.FromBytes(caller).Hex(),
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	if audience != "" {
		claims.Audience = jwt.ClaimStrings{audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
}

func extractBearer(header string) string {
	scheme, value, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(value)
}
