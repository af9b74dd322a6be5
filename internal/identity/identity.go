// Package identity resolves bearer tokens issued by the external identity
// provider into a caller identity.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrNoToken      = errors.New("no bearer token")
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrRevoked      = errors.New("token has been revoked")
	// ErrRevocationUnavailable means the blacklist could not be consulted.
	// The token is neither accepted nor rejected as invalid.
	ErrRevocationUnavailable = errors.New("revocation check unavailable")
)

// Identity is the caller resolved from a token. UserID is never zero.
type Identity struct {
	UserID      uint
	Username    string
	DisplayName string
	Role        string
	TokenID     string
}

// Resolver turns a raw bearer token into an Identity.
type Resolver interface {
	Resolve(ctx context.Context, token string) (*Identity, error)
}

type claims struct {
	Username    string `json:"preferred_username,omitempty"`
	DisplayName string `json:"name,omitempty"`
	Role        string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// JWTResolver verifies HS256 tokens against a shared secret, issuer and
// audience. When a Redis client is present, revoked token ids are rejected.
type JWTResolver struct {
	secret   []byte
	issuer   string
	audience string
	redis    *redis.Client
	now      func() time.Time
}

// NewJWTResolver builds a resolver. rdb may be nil.
func NewJWTResolver(secret, issuer, audience string, rdb *redis.Client) *JWTResolver {
	return &JWTResolver{
		secret:   []byte(secret),
		issuer:   issuer,
		audience: audience,
		redis:    rdb,
		now:      time.Now,
	}
}

// Resolve validates token and returns the identity it carries.
func (r *JWTResolver) Resolve(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrNoToken
	}

	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		return r.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(r.issuer),
		jwt.WithAudience(r.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(r.now),
	)
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	userID, err := strconv.ParseUint(c.Subject, 10, 32)
	if err != nil || userID == 0 {
		return nil, fmt.Errorf("%w: bad subject %q", ErrInvalidToken, c.Subject)
	}

	if c.ID != "" && r.redis != nil {
		n, err := r.redis.Exists(ctx, "blacklist:"+c.ID).Result()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRevocationUnavailable, err)
		}
		if n > 0 {
			return nil, ErrRevoked
		}
	}

	return &Identity{
		UserID:      uint(userID),
		Username:    c.Username,
		DisplayName: c.DisplayName,
		Role:        c.Role,
		TokenID:     c.ID,
	}, nil
}

// Issue signs a token for id, valid for ttl. Used by the development token
// tool and by tests standing in for the identity provider.
func (r *JWTResolver) Issue(id Identity, ttl time.Duration) (string, error) {
	now := r.now()
	c := claims{
		Username:    id.Username,
		DisplayName: id.DisplayName,
		Role:        id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(id.UserID), 10),
			Issuer:    r.issuer,
			Audience:  jwt.ClaimStrings{r.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(r.secret)
}

// Revoke blacklists a token id until its natural expiry.
func (r *JWTResolver) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if r.redis == nil {
		return errors.New("revocation requires redis")
	}
	return r.redis.Set(ctx, "blacklist:"+tokenID, "1", ttl).Err()
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
