package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
)

// Storage keys of the two persisted tokens.
const (
	AccessTokenKey  = "ledger:accessToken"
	RefreshTokenKey = "ledger:refreshToken"
)

// Tokens is the session credential pair.
type Tokens struct {
	Access  string `json:"accessToken"`
	Refresh string `json:"refreshToken"`
}

// Empty reports whether no access token is held.
func (t Tokens) Empty() bool { return t.Access == "" }

// TokenStore persists the session tokens.
type TokenStore interface {
	Load(ctx context.Context) (Tokens, error)
	Save(ctx context.Context, t Tokens) error
	Clear(ctx context.Context) error
}

// tokenExpired reports whether token is a JWT whose exp claim is before now.
// Opaque tokens and tokens without exp never count as expired; the server
// decides with a 401.
func tokenExpired(token string, now time.Time) bool {
	if token == "" {
		return false
	}
	claims := jwtlib.RegisteredClaims{}
	if _, _, err := jwtlib.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !claims.ExpiresAt.After(now)
}

// MemoryTokenStore keeps tokens in process memory.
type MemoryTokenStore struct {
	mu     sync.RWMutex
	tokens Tokens
}

// NewMemoryTokenStore returns a store seeded with initial.
func NewMemoryTokenStore(initial Tokens) *MemoryTokenStore {
	return &MemoryTokenStore{tokens: initial}
}

func (s *MemoryTokenStore) Load(context.Context) (Tokens, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens, nil
}

func (s *MemoryTokenStore) Save(_ context.Context, t Tokens) error {
	s.mu.Lock()
	s.tokens = t
	s.mu.Unlock()
	return nil
}

func (s *MemoryTokenStore) Clear(context.Context) error {
	s.mu.Lock()
	s.tokens = Tokens{}
	s.mu.Unlock()
	return nil
}

// FileTokenStore keeps tokens in a JSON file keyed like browser storage.
type FileTokenStore struct {
	mu   sync.Mutex
	path string
}

// NewFileTokenStore stores tokens at path.
func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path}
}

// Path returns the backing file.
func (s *FileTokenStore) Path() string { return s.path }

func (s *FileTokenStore) Load(context.Context) (Tokens, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Tokens{}, nil
	}
	if err != nil {
		return Tokens{}, fmt.Errorf("api: read token file: %w", err)
	}
	var stored map[string]string
	if err := json.Unmarshal(raw, &stored); err != nil {
		return Tokens{}, fmt.Errorf("api: decode token file: %w", err)
	}
	return Tokens{Access: stored[AccessTokenKey], Refresh: stored[RefreshTokenKey]}, nil
}

func (s *FileTokenStore) Save(_ context.Context, t Tokens) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, err := json.MarshalIndent(map[string]string{
		AccessTokenKey:  t.Access,
		RefreshTokenKey: t.Refresh,
	}, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("api: create token dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("api: write token file: %w", err)
	}
	return os.Rename(tmp, s.path)
}

func (s *FileTokenStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("api: remove token file: %w", err)
	}
	return nil
}

// RedisTokenStore shares one session between processes.
type RedisTokenStore struct {
	client *redis.Client
	prefix string
}

// NewRedisTokenStore stores the tokens under prefix+key.
func NewRedisTokenStore(client *redis.Client, prefix string) *RedisTokenStore {
	return &RedisTokenStore{client: client, prefix: prefix}
}

func (s *RedisTokenStore) key(name string) string { return s.prefix + name }

func (s *RedisTokenStore) Load(ctx context.Context) (Tokens, error) {
	values, err := s.client.MGet(ctx, s.key(AccessTokenKey), s.key(RefreshTokenKey)).Result()
	if err != nil {
		return Tokens{}, fmt.Errorf("api: load tokens: %w", err)
	}
	str := func(v any) string {
		s, _ := v.(string)
		return s
	}
	return Tokens{Access: str(values[0]), Refresh: str(values[1])}, nil
}

func (s *RedisTokenStore) Save(ctx context.Context, t Tokens) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(AccessTokenKey), t.Access, 0)
		pipe.Set(ctx, s.key(RefreshTokenKey), t.Refresh, 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("api: save tokens: %w", err)
	}
	return nil
}

func (s *RedisTokenStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key(AccessTokenKey), s.key(RefreshTokenKey)).Err(); err != nil {
		return fmt.Errorf("api: clear tokens: %w", err)
	}
	return nil
}
