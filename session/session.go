package session

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrSessionNotFound = errors.New("session not found or expired")

const (
	RoleAdmin    = "A"
	RoleEmployee = "E"
)

// Session is the server-side half of a login. The JWT handed to the client
// carries Token as its id.
type Session struct {
	Token     string    `json:"token"`
	UserID    int       `json:"user_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Branch    string    `json:"branch"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s Session) IsAdmin() bool {
	return s.Role == RoleAdmin
}

type Store struct {
	kv  KV
	ttl time.Duration
	now func() time.Time
}

func NewStore(kv KV, ttl time.Duration) *Store {
	return &Store{kv: kv, ttl: ttl, now: time.Now}
}

func tokenKey(token string) string {
	return "Token:" + token
}

// Create stores a new session with a fresh token.
func (s *Store) Create(ctx context.Context, sess Session) (*Session, error) {
	sess.Token = uuid.NewString()
	sess.Email = strings.ToLower(strings.TrimSpace(sess.Email))
	sess.CreatedAt = s.now().UTC()
	sess.ExpiresAt = sess.CreatedAt.Add(s.ttl)
	data, err := json.Marshal(sess)
	if err != nil {
		return nil, err
	}
	if err := s.kv.Set(ctx, tokenKey(sess.Token), string(data), s.ttl); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *Store) Get(ctx context.Context, token string) (*Session, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrSessionNotFound
	}
	raw, ok, err := s.kv.Get(ctx, tokenKey(token))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrSessionNotFound
	}
	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return nil, err
	}
	if !sess.ExpiresAt.IsZero() && s.now().After(sess.ExpiresAt) {
		_ = s.kv.Remove(ctx, tokenKey(token))
		return nil, ErrSessionNotFound
	}
	return &sess, nil
}

// Remove destroys a session; removing an unknown token is not an error.
func (s *Store) Remove(ctx context.Context, token string) error {
	return s.kv.Remove(ctx, tokenKey(token))
}

func (s *Store) TTL() time.Duration {
	return s.ttl
}
