package shared

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// FlashMessage represents a one-time notification stored in session.
type FlashMessage struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// SessionManager orchestrates cookie based sessions backed by Redis.
//
// The cookie carries an HS256 token whose claims name the session id and its
// expiry; the session payload itself lives in Redis under that id.
type SessionManager struct {
	client     *redis.Client
	cookieName string
	ttl        time.Duration
	secure     bool
	secret     []byte
	now        func() time.Time
}

// Session holds per-request session data.
type Session struct {
	ID         string
	values     map[string]string
	username   string
	flashes    []FlashMessage
	previousID string
	isNew      bool
	dirty      bool
	destroyed  bool
}

type sessionPayload struct {
	Values   map[string]string `json:"values"`
	Username string            `json:"username"`
	Flashes  []FlashMessage    `json:"flashes"`
}

// NewSessionManager constructs a SessionManager.
func NewSessionManager(client *redis.Client, cookieName string, secret string, ttl time.Duration, secure bool) *SessionManager {
	return &SessionManager{
		client:     client,
		cookieName: cookieName,
		ttl:        ttl,
		secure:     secure,
		secret:     []byte(secret),
		now:        time.Now,
	}
}

// Load loads the session referenced by the request cookie or starts a new
// anonymous one. Forged, expired or unknown tokens are treated as absent.
func (sm *SessionManager) Load(ctx context.Context, r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(sm.cookieName)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return sm.newSession(), nil
		}
		return nil, err
	}

	id, err := sm.parseToken(cookie.Value)
	if err != nil {
		return sm.newSession(), nil
	}

	payload, err := sm.client.Get(ctx, sm.redisKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return sm.newSession(), nil
		}
		return nil, fmt.Errorf("shared: load session: %w", err)
	}

	var stored sessionPayload
	if err := json.Unmarshal(payload, &stored); err != nil {
		return nil, fmt.Errorf("shared: decode session: %w", err)
	}

	sess := sm.newSession()
	sess.ID = id
	if stored.Values != nil {
		sess.values = stored.Values
	}
	sess.username = stored.Username
	sess.flashes = stored.Flashes
	sess.isNew = false
	return sess, nil
}

// Commit persists the session and writes cookie headers as needed.
func (sm *SessionManager) Commit(ctx context.Context, w http.ResponseWriter, r *http.Request, sess *Session) error {
	if sess == nil {
		return nil
	}

	if sess.destroyed {
		keys := []string{sm.redisKey(sess.ID)}
		if sess.previousID != "" {
			keys = append(keys, sm.redisKey(sess.previousID))
		}
		if err := sm.client.Del(ctx, keys...).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		http.SetCookie(w, &http.Cookie{
			Name:     sm.cookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   sm.secure,
			SameSite: http.SameSiteLaxMode,
		})
		return nil
	}

	// Anonymous sessions that never stored anything are not persisted.
	if sess.isNew && !sess.dirty {
		return nil
	}

	if sess.previousID != "" {
		if err := sm.client.Del(ctx, sm.redisKey(sess.previousID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		sess.previousID = ""
	}

	if sess.dirty {
		data, err := json.Marshal(sessionPayload{Values: sess.values, Username: sess.username, Flashes: sess.flashes})
		if err != nil {
			return err
		}
		if err := sm.client.Set(ctx, sm.redisKey(sess.ID), data, sm.ttl).Err(); err != nil {
			return err
		}
		sess.dirty = false
		sess.isNew = false
	} else if err := sm.client.Expire(ctx, sm.redisKey(sess.ID), sm.ttl).Err(); err != nil {
		return err
	}

	expiresAt := sm.now().Add(sm.ttl)
	token, err := sm.signToken(sess.ID, expiresAt)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sm.cookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  expiresAt,
	})
	return nil
}

// Renew assigns a fresh id to the session; the old id is dropped on commit.
func (sm *SessionManager) Renew(sess *Session) {
	if sess == nil {
		return
	}
	if !sess.isNew && sess.previousID == "" {
		sess.previousID = sess.ID
	}
	sess.ID = sm.generateSessionID()
	sess.dirty = true
}

// Destroy marks the session for deletion.
func (sm *SessionManager) Destroy(sess *Session) {
	if sess == nil {
		return
	}
	sess.username = ""
	sess.destroyed = true
}

// TTL exposes the configured session lifetime.
func (sm *SessionManager) TTL() time.Duration {
	return sm.ttl
}

// CookieName returns the cookie identifier used for sessions.
func (sm *SessionManager) CookieName() string {
	return sm.cookieName
}

// Session helpers

// Set stores a key-value pair.
func (s *Session) Set(key, value string) {
	if s.values == nil {
		s.values = make(map[string]string)
	}
	s.values[key] = value
	s.dirty = true
}

// Get retrieves a value.
func (s *Session) Get(key string) string {
	if s.values == nil {
		return ""
	}
	return s.values[key]
}

// Delete removes a value.
func (s *Session) Delete(key string) {
	if _, ok := s.values[key]; !ok {
		return
	}
	delete(s.values, key)
	s.dirty = true
}

// SetUser binds the session to an authenticated username.
func (s *Session) SetUser(username string) {
	s.username = username
	s.dirty = true
}

// User returns the authenticated username, or "" for anonymous sessions.
func (s *Session) User() string {
	if s.destroyed {
		return ""
	}
	return s.username
}

// AddFlash queues a flash message.
func (s *Session) AddFlash(msg FlashMessage) {
	s.flashes = append(s.flashes, msg)
	s.dirty = true
}

// PopFlashes retrieves and clears all queued flash messages.
func (s *Session) PopFlashes() []FlashMessage {
	if len(s.flashes) == 0 {
		return nil
	}
	msgs := s.flashes
	s.flashes = nil
	s.dirty = true
	return msgs
}

type sessionClaims struct {
	jwt.RegisteredClaims
}

func (sm *SessionManager) signToken(id string, expiresAt time.Time) (string, error) {
	claims := sessionClaims{RegisteredClaims: jwt.RegisteredClaims{
		ID:        id,
		IssuedAt:  jwt.NewNumericDate(sm.now()),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(sm.secret)
	if err != nil {
		return "", fmt.Errorf("shared: sign session token: %w", err)
	}
	return token, nil
}

func (sm *SessionManager) parseToken(raw string) (string, error) {
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return sm.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(sm.now),
	)
	if err != nil {
		return "", err
	}
	if !token.Valid || claims.ID == "" {
		return "", errors.New("shared: invalid session token")
	}
	return claims.ID, nil
}

func (sm *SessionManager) newSession() *Session {
	return &Session{
		ID:     sm.generateSessionID(),
		values: make(map[string]string),
		isNew:  true,
	}
}

func (sm *SessionManager) redisKey(id string) string {
	return "session:" + id
}

func (sm *SessionManager) generateSessionID() string {
	return uuid.NewString()
}
