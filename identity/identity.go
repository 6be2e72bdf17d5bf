// identity/identity.go
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrInvalidUser     = errors.New("user id is required")
)

// UserContext 当前登录用户，登录时创建，登出时销毁
type UserContext struct {
	UserID     string    `json:"user_id"`
	Username   string    `json:"username"`
	Token      string    `json:"token"`
	SignedInAt time.Time `json:"signed_in_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Provider resolves an opaque bearer token to a user.
type Provider interface {
	Resolve(ctx context.Context, token string) (*UserContext, error)
}

const DefaultTokenTTL = 24 * time.Hour

// TokenStore keeps sessions in Redis under arena:token:<token>.
type TokenStore struct {
	rdb *redis.Client
	ttl time.Duration
	now func() time.Time
}

func NewTokenStore(rdb *redis.Client, ttl time.Duration) *TokenStore {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenStore{rdb: rdb, ttl: ttl, now: time.Now}
}

func (s *TokenStore) keyToken(token string) string { return "arena:token:" + strings.TrimSpace(token) }

// SignIn 创建新的 UserContext 并返回 token
func (s *TokenStore) SignIn(ctx context.Context, userID, username string) (*UserContext, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrInvalidUser
	}
	now := s.now().UTC()
	uc := &UserContext{
		UserID:     userID,
		Username:   strings.TrimSpace(username),
		Token:      uuid.NewString(),
		SignedInAt: now,
		ExpiresAt:  now.Add(s.ttl),
	}
	raw, err := json.Marshal(uc)
	if err != nil {
		return nil, err
	}
	if err := s.rdb.Set(ctx, s.keyToken(uc.Token), raw, s.ttl).Err(); err != nil {
		return nil, err
	}
	return uc, nil
}

func (s *TokenStore) Resolve(ctx context.Context, token string) (*UserContext, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrUnauthenticated
	}
	raw, err := s.rdb.Get(ctx, s.keyToken(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, err
	}
	var uc UserContext
	if err := json.Unmarshal(raw, &uc); err != nil {
		return nil, ErrUnauthenticated
	}
	return &uc, nil
}

// SignOut 销毁 token，重复登出不报错
func (s *TokenStore) SignOut(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return nil
	}
	return s.rdb.Del(ctx, s.keyToken(token)).Err()
}

type contextKey string

const userContextKey = contextKey("user")

// WithUser 把用户放入请求 context
func WithUser(ctx context.Context, uc *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, uc)
}

func FromContext(ctx context.Context) (*UserContext, bool) {
	uc, ok := ctx.Value(userContextKey).(*UserContext)
	return uc, ok && uc != nil
}

// UserID returns the signed-in user's id or "".
func UserID(ctx context.Context) string {
	if uc, ok := FromContext(ctx); ok {
		return uc.UserID
	}
	return ""
}
