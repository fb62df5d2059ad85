package utils

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cppla/captcha/captcha"
)

// ErrSessionNotFound is returned for unknown or expired session ids.
var ErrSessionNotFound = errors.New("captcha session not found")

const defaultSessionTTL = 10 * time.Minute

type sessionEntry struct {
	mu      sync.Mutex
	session *captcha.Session
	expires time.Time
}

// SessionRegistry keeps one captcha session per client id. Each session is
// only touched under its own lock; answer changes are forwarded to the store.
type SessionRegistry struct {
	opts       captcha.Options
	store      AnswerStore
	answerTTL  time.Duration
	sessionTTL time.Duration

	mu      sync.Mutex
	entries map[string]*sessionEntry
}

// NewSessionRegistry creates a registry building sessions from opts.
func NewSessionRegistry(opts captcha.Options, store AnswerStore, answerTTL, sessionTTL time.Duration) *SessionRegistry {
	if sessionTTL <= 0 {
		sessionTTL = defaultSessionTTL
	}
	return &SessionRegistry{
		opts:       opts,
		store:      store,
		answerTTL:  answerTTL,
		sessionTTL: sessionTTL,
		entries:    map[string]*sessionEntry{},
	}
}

// Create registers a new Unset session and returns its id.
func (r *SessionRegistry) Create() (string, error) {
	id := uuid.NewString()
	s, err := captcha.NewSession(r.opts,
		captcha.WithNotifier(r.notifier(id)),
		captcha.WithLogger(Logger.With(zap.String("captcha_id", id))),
	)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.cleanupExpiredLocked()
	r.entries[id] = &sessionEntry{session: s, expires: time.Now().Add(r.sessionTTL)}
	return id, nil
}

// With runs fn on the session for id while holding that session's lock.
func (r *SessionRegistry) With(id string, fn func(*captcha.Session) error) error {
	r.mu.Lock()
	r.cleanupExpiredLocked()
	entry, ok := r.entries[id]
	if ok {
		entry.expires = time.Now().Add(r.sessionTTL)
	}
	r.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return fn(entry.session)
}

// Delete drops the session and its stored answer.
func (r *SessionRegistry) Delete(ctx context.Context, id string) {
	r.mu.Lock()
	delete(r.entries, id)
	r.mu.Unlock()
	if err := r.store.Delete(ctx, id); err != nil {
		Sugar.Warnf("delete stored answer id=%s err=%v", id, err)
	}
}

// Forget drops the stored answer but keeps the session.
func (r *SessionRegistry) Forget(ctx context.Context, id string) {
	if err := r.store.Delete(ctx, id); err != nil {
		Sugar.Warnf("delete stored answer id=%s err=%v", id, err)
	}
}

// Len reports the number of live sessions.
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cleanupExpiredLocked()
	return len(r.entries)
}

// Store returns the answer store sessions notify.
func (r *SessionRegistry) Store() AnswerStore { return r.store }

// SessionTTL is the idle lifetime of a session.
func (r *SessionRegistry) SessionTTL() time.Duration { return r.sessionTTL }

func (r *SessionRegistry) notifier(id string) func(string) {
	return func(answer string) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := r.store.Save(ctx, id, answer, r.answerTTL); err != nil {
			Sugar.Errorf("store answer id=%s err=%v", id, err)
		}
	}
}

func (r *SessionRegistry) cleanupExpiredLocked() {
	now := time.Now()
	for id, entry := range r.entries {
		if now.After(entry.expires) {
			delete(r.entries, id)
		}
	}
}
