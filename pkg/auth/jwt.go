package auth

import (
	"crypto/sha256"
	"encoding/hex"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/patrickmn/go-cache"
)

var (
	ErrMissingSecret  = stderrors.New("jwt secret is required")
	ErrMissingSubject = stderrors.New("token has no subject")
)

// Claims are the registered claims carried by API tokens.
type Claims struct {
	jwt.RegisteredClaims
}

// JWTService issues and validates HS256 bearer tokens.
type JWTService interface {
	Issue(subject string, ttl time.Duration) (string, error)
	Validate(token string) (*Claims, error)
}

type jwtService struct {
	secret []byte
	issuer string
	now    func() time.Time
	cache  *cache.Cache
	ttl    time.Duration
}

// Option configures the JWT service.
type Option func(*jwtService)

// WithClock overrides the time source used for issuing and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(s *jwtService) {
		s.now = now
	}
}

// WithCache keeps validated claims for up to ttl so repeated requests with
// the same token skip signature verification. Entries never outlive the
// token itself.
func WithCache(ttl time.Duration) Option {
	return func(s *jwtService) {
		if ttl > 0 {
			s.cache = cache.New(ttl, 2*ttl)
			s.ttl = ttl
		}
	}
}

// NewJWTService returns a service signing with secret. When issuer is set,
// tokens must carry it.
func NewJWTService(secret, issuer string, opts ...Option) (JWTService, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	s := &jwtService{secret: []byte(secret), issuer: issuer, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *jwtService) Issue(subject string, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", ErrMissingSubject
	}
	now := s.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (s *jwtService) Validate(token string) (*Claims, error) {
	key := cacheKey(token)
	if s.cache != nil {
		if v, ok := s.cache.Get(key); ok {
			claims := v.(*Claims)
			if claims.ExpiresAt.Time.After(s.now()) {
				return claims, nil
			}
			s.cache.Delete(key)
		}
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if claims.Subject == "" {
		return nil, ErrMissingSubject
	}

	if s.cache != nil {
		if remaining := claims.ExpiresAt.Time.Sub(s.now()); remaining > 0 {
			s.cache.Set(key, claims, min(remaining, s.ttl))
		}
	}
	return claims, nil
}

func cacheKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
