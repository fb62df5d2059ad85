package utils

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

const defaultAnswerTTL = 10 * time.Minute

// AnswerStore receives answer-changed notifications and checks submitted
// answers. Answers are stored as bcrypt hashes.
type AnswerStore interface {
	Save(ctx context.Context, id, answer string, ttl time.Duration) error
	// Verify compares answer with the stored one. With consume set the stored
	// answer is removed whatever the outcome, so every attempt is single use.
	Verify(ctx context.Context, id, answer string, consume bool) (bool, error)
	Delete(ctx context.Context, id string) error
}

// NewAnswerStore returns a Redis-backed store falling back to memory on Redis
// errors, or a memory store when rc is nil.
func NewAnswerStore(rc *redis.Client, hashCost int) AnswerStore {
	mem := newMemoryAnswerStore(hashCost)
	if rc == nil {
		return mem
	}
	return &redisAnswerStore{rc: rc, cost: mem.cost, fallback: mem}
}

func hashAnswer(answer string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(answer), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func checkAnswer(hash, answer string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(answer)) == nil
}

func normalizeCost(cost int) int {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return bcrypt.MinCost
	}
	return cost
}

type answerEntry struct {
	hash      string
	expiresAt time.Time
}

type memoryAnswerStore struct {
	mu      sync.Mutex
	cost    int
	entries map[string]answerEntry
}

func newMemoryAnswerStore(cost int) *memoryAnswerStore {
	return &memoryAnswerStore{cost: normalizeCost(cost), entries: map[string]answerEntry{}}
}

func (s *memoryAnswerStore) Save(_ context.Context, id, answer string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = defaultAnswerTTL
	}
	hash, err := hashAnswer(answer, s.cost)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for k, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, k)
		}
	}
	s.entries[id] = answerEntry{hash: hash, expiresAt: now.Add(ttl)}
	return nil
}

func (s *memoryAnswerStore) Verify(_ context.Context, id, answer string, consume bool) (bool, error) {
	if id == "" || answer == "" {
		return false, nil
	}
	s.mu.Lock()
	entry, ok := s.entries[id]
	if ok && consume {
		delete(s.entries, id)
	}
	s.mu.Unlock()
	if !ok || time.Now().After(entry.expiresAt) {
		return false, nil
	}
	return checkAnswer(entry.hash, answer), nil
}

func (s *memoryAnswerStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.entries, id)
	s.mu.Unlock()
	return nil
}

type redisAnswerStore struct {
	rc       *redis.Client
	cost     int
	fallback *memoryAnswerStore
}

func answerKey(id string) string {
	return "captcha:answer:" + id
}

// Save stores the hashed answer with TTL. Prefer Redis; fallback to memory.
func (s *redisAnswerStore) Save(ctx context.Context, id, answer string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = defaultAnswerTTL
	}
	hash, err := hashAnswer(answer, s.cost)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := s.rc.Set(ctx, answerKey(id), hash, ttl).Err(); err != nil {
		Sugar.Warnf("answer store: redis set failed id=%s err=%v", id, err)
		return s.fallback.Save(ctx, id, answer, ttl)
	}
	return nil
}

func (s *redisAnswerStore) Verify(ctx context.Context, id, answer string, consume bool) (bool, error) {
	if id == "" || answer == "" {
		return false, nil
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	hash, err := s.load(ctx, answerKey(id), consume)
	switch {
	case errors.Is(err, redis.Nil):
		// The answer may have been saved to memory while Redis was unavailable.
		return s.fallback.Verify(ctx, id, answer, consume)
	case err != nil:
		Sugar.Warnf("answer store: redis read failed id=%s err=%v", id, err)
		return s.fallback.Verify(ctx, id, answer, consume)
	}
	return checkAnswer(hash, answer), nil
}

func (s *redisAnswerStore) load(ctx context.Context, key string, consume bool) (string, error) {
	if !consume {
		return s.rc.Get(ctx, key).Result()
	}
	// Prefer GETDEL (Redis >= 6.2)
	v, err := s.rc.GetDel(ctx, key).Result()
	if err == nil || errors.Is(err, redis.Nil) {
		return v, err
	}
	// Fallback to Lua: GET then DEL atomically
	script := `local v=redis.call('GET', KEYS[1]); if v then redis.call('DEL', KEYS[1]); end; return v`
	res, err := s.rc.Eval(ctx, script, []string{key}).Result()
	if err != nil {
		return "", err
	}
	str, ok := res.(string)
	if !ok {
		return "", redis.Nil
	}
	return str, nil
}

func (s *redisAnswerStore) Delete(ctx context.Context, id string) error {
	_ = s.fallback.Delete(ctx, id)
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.rc.Del(ctx, answerKey(id)).Err()
}
