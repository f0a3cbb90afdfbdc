package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// TokenErrorKind classifies why a token failed verification.
type TokenErrorKind string

const (
	TokenErrorMalformed         TokenErrorKind = "MALFORMED"
	TokenErrorSignatureMismatch TokenErrorKind = "SIGNATURE_MISMATCH"
	TokenErrorExpired           TokenErrorKind = "EXPIRED"
)

// TokenError is returned by Decode for every rejected token.
type TokenError struct {
	Kind TokenErrorKind
	Err  error
}

func (e *TokenError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("token %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("token %s", e.Kind)
}

func (e *TokenError) Unwrap() error {
	return e.Err
}

// TokenErrorKindOf reports the kind of a Decode error, or "" when err is not a TokenError.
func TokenErrorKindOf(err error) TokenErrorKind {
	var tokenErr *TokenError
	if errors.As(err, &tokenErr) {
		return tokenErr.Kind
	}
	return ""
}

// Claims is the payload bound into an access token.
type Claims struct {
	Subject   string
	ExpiresAt time.Time
	IssuedAt  time.Time
	ID        string
}

type wireClaims struct {
	jwt.RegisteredClaims
}

// TokenCodecOption customizes a TokenCodec.
type TokenCodecOption func(*TokenCodec)

// WithClock replaces the time source used for issuance and expiry checks.
func WithClock(now func() time.Time) TokenCodecOption {
	return func(tc *TokenCodec) {
		if now != nil {
			tc.now = now
		}
	}
}

// TokenCodec signs claims into HS256 JWTs and verifies them back.
// It is immutable after construction and safe for concurrent use.
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

// NewTokenCodec builds a codec. An empty secret or non-positive ttl is a configuration error.
func NewTokenCodec(secret []byte, ttl time.Duration, opts ...TokenCodecOption) (*TokenCodec, error) {
	if len(secret) == 0 {
		return nil, errors.New("token secret is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token ttl must be positive, got %v", ttl)
	}

	tc := &TokenCodec{
		secret: append([]byte(nil), secret...),
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(tc)
	}

	tc.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(tc.now),
	)
	return tc, nil
}

// TTL returns the fixed token lifetime.
func (tc *TokenCodec) TTL() time.Duration {
	return tc.ttl
}

// Now returns the codec's current time.
func (tc *TokenCodec) Now() time.Time {
	return tc.now()
}

// NewClaims builds claims for subject expiring one TTL from now.
func (tc *TokenCodec) NewClaims(subject, id string) Claims {
	issuedAt := tc.now().Truncate(time.Second)
	return Claims{
		Subject:   subject,
		IssuedAt:  issuedAt,
		ExpiresAt: issuedAt.Add(tc.ttl),
		ID:        id,
	}
}

// Encode serializes and signs claims. Times must be whole seconds since the
// token carries them at second precision.
func (tc *TokenCodec) Encode(claims Claims) (string, error) {
	if claims.Subject == "" {
		return "", errors.New("claims subject is required")
	}
	if claims.ExpiresAt.IsZero() {
		return "", errors.New("claims expiry is required")
	}
	if !wholeSecond(claims.ExpiresAt) || !wholeSecond(claims.IssuedAt) {
		return "", errors.New("claims times must be whole seconds")
	}

	wire := wireClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.Subject,
			ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
			ID:        claims.ID,
		},
	}
	if !claims.IssuedAt.IsZero() {
		wire.IssuedAt = jwt.NewNumericDate(claims.IssuedAt)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, wire)
	signed, err := token.SignedString(tc.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Decode verifies the signature and expiry of tokenStr and returns its claims.
// Tokens declaring any algorithm other than HS256, including "none", are rejected
// as signature mismatches, as are signature segments that are not canonical base64url.
func (tc *TokenCodec) Decode(tokenStr string) (*Claims, error) {
	wire := &wireClaims{}
	parsed, err := tc.parser.ParseWithClaims(tokenStr, wire, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return tc.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) && tc.signatureOnlyDefect(tokenStr) {
			return nil, &TokenError{Kind: TokenErrorSignatureMismatch, Err: err}
		}
		return nil, classify(err)
	}
	if !parsed.Valid {
		return nil, &TokenError{Kind: TokenErrorSignatureMismatch}
	}
	if wire.Subject == "" {
		return nil, &TokenError{Kind: TokenErrorMalformed, Err: errors.New("missing subject")}
	}

	claims := &Claims{
		Subject:   wire.Subject,
		ExpiresAt: wire.ExpiresAt.Time,
		ID:        wire.ID,
	}
	if wire.IssuedAt != nil {
		claims.IssuedAt = wire.IssuedAt.Time
	}
	return claims, nil
}

// signatureOnlyDefect reports whether header and payload of tokenStr parse
// cleanly, which leaves the signature segment as the malformed part.
func (tc *TokenCodec) signatureOnlyDefect(tokenStr string) bool {
	if strings.Count(tokenStr, ".") != 2 {
		return false
	}
	_, _, err := tc.parser.ParseUnverified(tokenStr, &wireClaims{})
	return err == nil
}

func wholeSecond(t time.Time) bool {
	return t.Equal(t.Truncate(time.Second))
}

// classify maps jwt/v5 errors onto the codec's error kinds. Signature
// problems are checked first since jwt/v5 verifies the signature before
// it validates registered claims.
func classify(err error) *TokenError {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable),
		errors.Is(err, jwt.ErrSignatureInvalid):
		return &TokenError{Kind: TokenErrorSignatureMismatch, Err: err}
	case errors.Is(err, jwt.ErrTokenExpired):
		return &TokenError{Kind: TokenErrorExpired, Err: err}
	default:
		return &TokenError{Kind: TokenErrorMalformed, Err: err}
	}
}
