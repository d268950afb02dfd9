// Package token issues and verifies the HS256 bearer tokens used for access
// and refresh. Access and refresh tokens share one format; only the lifetime
// passed to Issue differs.
package token

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed        = errors.New("token is malformed")
	ErrInvalidSignature = errors.New("token signature is invalid")
	ErrExpired          = errors.New("token has expired")
)

// MinKeyLen is the shortest HMAC key the service accepts, in bytes.
const MinKeyLen = 32

type Service struct {
	key    []byte
	now    func() time.Time
	parser *jwt.Parser
}

type Option func(*Service)

// WithClock overrides the time source used for iat/exp and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func New(key []byte, opts ...Option) (*Service, error) {
	if len(key) < MinKeyLen {
		return nil, fmt.Errorf("signing key must be at least %d bytes, got %d", MinKeyLen, len(key))
	}
	s := &Service{
		key: append([]byte(nil), key...),
		now: time.Now,
		// Strict decoding rejects non-zero trailing bits, so every
		// character of the signature segment is significant.
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
			jwt.WithStrictDecoding(),
		),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue signs a token for subject valid for lifetime from now. Timestamps are
// second-aligned, matching the JWT NumericDate encoding.
func (s *Service) Issue(subject string, lifetime time.Duration) (string, error) {
	if subject == "" {
		return "", errors.New("issue token: empty subject")
	}
	if lifetime <= 0 {
		return "", fmt.Errorf("issue token: non-positive lifetime %s", lifetime)
	}

	issuedAt := s.now().Truncate(time.Second)
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(issuedAt.Add(lifetime)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature, then expiry, and returns the subject.
// Expiry is strict: a token is expired once now reaches exp.
func (s *Service) Verify(raw string) (string, error) {
	var claims jwt.RegisteredClaims
	parsed, err := s.parser.ParseWithClaims(raw, &claims, s.keyFunc)
	if err != nil {
		// jwt reports a disallowed alg as a signature error too; only a MAC
		// mismatch on an HS256 token counts as a bad signature here.
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) && parsed != nil && parsed.Method == jwt.SigningMethodHS256 {
			return "", ErrInvalidSignature
		}
		if errors.Is(err, jwt.ErrTokenMalformed) && undecodableSignature(raw) {
			return "", ErrInvalidSignature
		}
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if claims.Subject == "" || claims.ExpiresAt == nil {
		return "", ErrMalformed
	}
	if !s.now().Before(claims.ExpiresAt.Time) {
		return "", ErrExpired
	}
	return claims.Subject, nil
}

func (s *Service) keyFunc(t *jwt.Token) (any, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, errors.New("unexpected signing method")
	}
	return s.key, nil
}

var segmentEncoding = base64.RawURLEncoding.Strict()

// undecodableSignature reports whether raw is a well-formed HS256 token whose
// only defect is a signature segment that does not strictly decode.
func undecodableSignature(raw string) bool {
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return false
	}

	headerJSON, err := segmentEncoding.DecodeString(parts[0])
	if err != nil {
		return false
	}
	var header struct {
		Alg string `json:"alg"`
	}
	if err := json.Unmarshal(headerJSON, &header); err != nil || header.Alg != jwt.SigningMethodHS256.Alg() {
		return false
	}

	claimsJSON, err := segmentEncoding.DecodeString(parts[1])
	if err != nil || !json.Valid(claimsJSON) {
		return false
	}

	_, err = segmentEncoding.DecodeString(parts[2])
	return err != nil
}

// Reason maps a Verify error to a short label for logs and metrics.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrExpired):
		return "expired"
	case errors.Is(err, ErrInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, ErrMalformed):
		return "malformed"
	default:
		return "unknown"
	}
}
