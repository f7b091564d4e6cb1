package tokenstore

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"

	appErrors "github.com/noah-isme/sma-professor-gateway/pkg/errors"
)

// ErrAbsent is returned when no token is currently stored.
var ErrAbsent = appErrors.New(appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "no bearer token available")

// Store reads the current bearer token. Implementations never cache across
// calls; a rotated token is visible on the next Read.
type Store interface {
	Read(ctx context.Context) (string, error)
}

// Static holds a token in memory. Set replaces it for subsequent reads.
type Static struct {
	mu    sync.RWMutex
	token string
}

// NewStatic constructs a Static store.
func NewStatic(token string) *Static {
	return &Static{token: strings.TrimSpace(token)}
}

// Read returns the stored token.
func (s *Static) Read(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return "", ErrAbsent
	}
	return s.token, nil
}

// Set rotates the stored token.
func (s *Static) Set(token string) {
	s.mu.Lock()
	s.token = strings.TrimSpace(token)
	s.mu.Unlock()
}

// File reads the token from a file on every call.
type File struct {
	path string
}

// NewFile constructs a File store.
func NewFile(path string) *File {
	return &File{path: path}
}

// Read loads and trims the token file.
func (f *File) Read(ctx context.Context) (string, error) {
	raw, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrAbsent
		}
		return "", fmt.Errorf("read token file %s: %w", f.path, err)
	}
	token := strings.TrimSpace(string(raw))
	if token == "" {
		return "", ErrAbsent
	}
	return token, nil
}

// Redis reads the token from a shared redis key written by the auth service.
type Redis struct {
	client *redis.Client
	key    string
}

// NewRedis constructs a Redis store.
func NewRedis(client *redis.Client, key string) *Redis {
	return &Redis{client: client, key: key}
}

// Read fetches the token key.
func (r *Redis) Read(ctx context.Context) (string, error) {
	if r.client == nil {
		return "", ErrAbsent
	}
	token, err := r.client.Get(ctx, r.key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", ErrAbsent
		}
		return "", fmt.Errorf("redis get %s: %w", r.key, err)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrAbsent
	}
	return token, nil
}

type ctxKey struct{}

// WithToken returns a copy of ctx carrying a request-scoped token.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, ctxKey{}, token)
}

// Request reads the token attached to the call context by WithToken and
// falls back to another store when the context has none.
type Request struct {
	fallback Store
}

// NewRequest constructs a Request store. fallback may be nil.
func NewRequest(fallback Store) *Request {
	return &Request{fallback: fallback}
}

// Read returns the context token or the fallback's token.
func (r *Request) Read(ctx context.Context) (string, error) {
	if token, ok := ctx.Value(ctxKey{}).(string); ok && token != "" {
		return token, nil
	}
	if r.fallback != nil {
		return r.fallback.Read(ctx)
	}
	return "", ErrAbsent
}
