package session

import (
	"context"
	"fmt"
	"time"

	"github.com/go-webauthn/webauthn/webauthn"
	jsoniter "github.com/json-iterator/go"
	"github.com/redis/go-redis/v9"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Store keeps short-lived WebAuthn ceremony state between begin and finish.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewStore(rdb *redis.Client, ttl time.Duration) *Store { return &Store{rdb: rdb, ttl: ttl} }

// PendingRegistration is a self-signup waiting for its first passkey.
// The user row is only written when the ceremony finishes.
type PendingRegistration struct {
	UserID      string               `json:"uid"`
	Email       string               `json:"email"`
	DisplayName string               `json:"displayName"`
	IDNumber    string               `json:"idNumber,omitempty"`
	InviteToken string               `json:"inviteToken,omitempty"`
	Session     webauthn.SessionData `json:"session"`
}

func regKey(userID string) string    { return fmt.Sprintf("webauthn:reg:%s", userID) }
func pendingKey(token string) string { return fmt.Sprintf("webauthn:reg:new:%s", token) }
func authKey(sid string) string      { return fmt.Sprintf("webauthn:auth:%s", sid) }

func (s *Store) put(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, key, b, s.ttl).Err()
}

func (s *Store) get(ctx context.Context, key string, v any) error {
	b, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

func (s *Store) del(ctx context.Context, key string) { _ = s.rdb.Del(ctx, key).Err() }

// SaveReg stores the add-credential ceremony of a signed-in user.
func (s *Store) SaveReg(ctx context.Context, userID string, sd *webauthn.SessionData) error {
	return s.put(ctx, regKey(userID), sd)
}

func (s *Store) LoadReg(ctx context.Context, userID string) (*webauthn.SessionData, error) {
	var sd webauthn.SessionData
	if err := s.get(ctx, regKey(userID), &sd); err != nil {
		return nil, err
	}
	return &sd, nil
}

func (s *Store) DelReg(ctx context.Context, userID string) { s.del(ctx, regKey(userID)) }

func (s *Store) SavePending(ctx context.Context, token string, p *PendingRegistration) error {
	return s.put(ctx, pendingKey(token), p)
}

func (s *Store) LoadPending(ctx context.Context, token string) (*PendingRegistration, error) {
	var p PendingRegistration
	if err := s.get(ctx, pendingKey(token), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) DelPending(ctx context.Context, token string) { s.del(ctx, pendingKey(token)) }

func (s *Store) SaveAuth(ctx context.Context, sid string, sd *webauthn.SessionData) error {
	return s.put(ctx, authKey(sid), sd)
}

func (s *Store) LoadAuth(ctx context.Context, sid string) (*webauthn.SessionData, error) {
	var sd webauthn.SessionData
	if err := s.get(ctx, authKey(sid), &sd); err != nil {
		return nil, err
	}
	return &sd, nil
}

func (s *Store) DelAuth(ctx context.Context, sid string) { s.del(ctx, authKey(sid)) }
