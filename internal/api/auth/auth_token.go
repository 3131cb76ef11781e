package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/FACorreiaa/go-pokedex-api/config"
	"github.com/FACorreiaa/go-pokedex-api/internal/types"
)

// TokenVerifier turns a bearer token into an Identity. ok is false for every
// kind of failure: malformed, badly signed, expired, or carrying an unknown role.
type TokenVerifier interface {
	Verify(token string) (types.Identity, bool)
}

var _ TokenVerifier = (*TokenCodec)(nil)

type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenCodec issues and verifies HS256 tokens. It holds no mutable state and
// is safe for concurrent use.
type TokenCodec struct {
	key    []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenCodec(cfg config.JWTConfig) (*TokenCodec, error) {
	if len(cfg.SecretKey) == 0 {
		return nil, errors.New("jwt secret key is empty")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenCodec{
		key:    []byte(cfg.SecretKey),
		issuer: cfg.Issuer,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// Issue signs a token for subject with exp = now + ttl.
func (c *TokenCodec) Issue(subject string, role types.Role) (string, error) {
	now := c.now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	})
	signed, err := tok.SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

func (c *TokenCodec) Verify(token string) (types.Identity, bool) {
	if token == "" {
		return types.Identity{}, false
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}

	var cl claims
	parsed, err := jwt.ParseWithClaims(token, &cl, func(*jwt.Token) (interface{}, error) {
		return c.key, nil
	}, opts...)
	if err != nil || !parsed.Valid {
		return types.Identity{}, false
	}
	if cl.Subject == "" {
		return types.Identity{}, false
	}
	role, ok := types.ParseRole(cl.Role)
	if !ok {
		return types.Identity{}, false
	}
	return types.Identity{Subject: cl.Subject, Role: role}, true
}
