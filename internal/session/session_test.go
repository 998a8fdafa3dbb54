package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/golang-jwt/jwt/v5"
)

var fixedNow = time.Date(2024, time.January, 1, 9, 30, 0, 0, time.UTC)

type memoryStore struct {
	mu    sync.Mutex
	bags  map[string]Values
	ttls  map[string]time.Duration
	saves int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{bags: map[string]Values{}, ttls: map[string]time.Duration{}}
}

func (store *memoryStore) Load(_ context.Context, id string) (Values, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	values, ok := store.bags[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return values, nil
}

func (store *memoryStore) Save(_ context.Context, id string, values Values, ttl time.Duration) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.bags[id] = values
	store.ttls[id] = ttl
	store.saves++
	return nil
}

func (store *memoryStore) Delete(_ context.Context, id string) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	delete(store.bags, id)
	return nil
}

func mustManager(test *testing.T, store Store, clock func() time.Time) *Manager {
	test.Helper()
	manager, err := NewManager(store, Config{SigningKey: []byte("session-secret"), TTL: time.Hour}, clock)
	if err != nil {
		test.Fatalf("manager: %v", err)
	}
	return manager
}

func TestStartResolveDestroy(test *testing.T) {
	test.Parallel()
	store := newMemoryStore()
	manager := mustManager(test, store, func() time.Time { return fixedNow })
	ctx := context.Background()

	started, token, err := manager.Start(ctx, Values{KeyUserID: "21"})
	if err != nil {
		test.Fatalf("start: %v", err)
	}
	if store.ttls[started.ID] != time.Hour {
		test.Fatalf("expected ttl 1h, got %s", store.ttls[started.ID])
	}
	resolved, err := manager.Resolve(ctx, token)
	if err != nil {
		test.Fatalf("resolve: %v", err)
	}
	if userID, _ := resolved.Get(KeyUserID); userID != "21" || resolved.ID != started.ID {
		test.Fatalf("unexpected session %+v", resolved)
	}
	if !resolved.ExpiresAt.Equal(fixedNow.Add(time.Hour)) {
		test.Fatalf("unexpected expiry %s", resolved.ExpiresAt)
	}
	if err := manager.Destroy(ctx, token); err != nil {
		test.Fatalf("destroy: %v", err)
	}
	if _, err := manager.Resolve(ctx, token); !errors.Is(err, ErrSessionNotFound) {
		test.Fatalf("expected destroyed session to be gone, got %v", err)
	}
	if err := manager.Destroy(ctx, token); err != nil {
		test.Fatalf("second destroy must be a no-op, got %v", err)
	}
}

func TestResolveRejectsBadTokens(test *testing.T) {
	test.Parallel()
	store := newMemoryStore()
	manager := mustManager(test, store, func() time.Time { return fixedNow })
	ctx := context.Background()
	_, token, err := manager.Start(ctx, Values{KeyUserID: "21"})
	if err != nil {
		test.Fatalf("start: %v", err)
	}

	otherKey := mustManager(test, store, func() time.Time { return fixedNow })
	otherKey.cfg.SigningKey = []byte("another-secret")
	expired := mustManager(test, store, func() time.Time { return fixedNow.Add(2 * time.Hour) })

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims{
		RegisteredClaims: jwt.RegisteredClaims{ID: "forged", Issuer: defaultIssuer, ExpiresAt: jwt.NewNumericDate(fixedNow.Add(time.Hour))},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		test.Fatalf("none token: %v", err)
	}

	testCases := []struct {
		name    string
		manager *Manager
		token   string
	}{
		{name: "empty", manager: manager, token: ""},
		{name: "garbage", manager: manager, token: "not-a-jwt"},
		{name: "wrong key", manager: otherKey, token: token},
		{name: "expired", manager: expired, token: token},
		{name: "unsigned", manager: manager, token: noneToken},
	}
	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			if _, err := testCase.manager.Resolve(ctx, testCase.token); !errors.Is(err, ErrInvalidToken) {
				test.Fatalf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

func TestNewManagerValidation(test *testing.T) {
	test.Parallel()
	clock := func() time.Time { return fixedNow }
	testCases := []struct {
		name  string
		store Store
		cfg   Config
		clock func() time.Time
	}{
		{name: "nil store", store: nil, cfg: Config{SigningKey: []byte("k"), TTL: time.Hour}, clock: clock},
		{name: "nil clock", store: newMemoryStore(), cfg: Config{SigningKey: []byte("k"), TTL: time.Hour}},
		{name: "missing key", store: newMemoryStore(), cfg: Config{TTL: time.Hour}, clock: clock},
		{name: "zero ttl", store: newMemoryStore(), cfg: Config{SigningKey: []byte("k")}, clock: clock},
	}
	for _, testCase := range testCases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			if _, err := NewManager(testCase.store, testCase.cfg, testCase.clock); !errors.Is(err, ErrInvalidConfig) {
				test.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestRedisStoreRoundTripAndExpiry(test *testing.T) {
	test.Parallel()
	server := miniredis.RunT(test)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	test.Cleanup(func() { _ = client.Close() })
	store := NewRedisStore(client)
	ctx := context.Background()

	if _, err := store.Load(ctx, "missing"); !errors.Is(err, ErrSessionNotFound) {
		test.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if err := store.Save(ctx, "sid-1", Values{KeyUserID: "21"}, time.Minute); err != nil {
		test.Fatalf("save: %v", err)
	}
	values, err := store.Load(ctx, "sid-1")
	if err != nil {
		test.Fatalf("load: %v", err)
	}
	if values[KeyUserID] != "21" {
		test.Fatalf("unexpected values %v", values)
	}
	if ttl := server.TTL(redisKeyPrefix + "sid-1"); ttl != time.Minute {
		test.Fatalf("expected ttl 1m, got %s", ttl)
	}
	server.FastForward(2 * time.Minute)
	if _, err := store.Load(ctx, "sid-1"); !errors.Is(err, ErrSessionNotFound) {
		test.Fatalf("expected expiry, got %v", err)
	}
}

func TestRedisLogoutInvalidatesSession(test *testing.T) {
	test.Parallel()
	server := miniredis.RunT(test)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	test.Cleanup(func() { _ = client.Close() })
	manager := mustManager(test, NewRedisStore(client), time.Now)
	ctx := context.Background()

	started, token, err := manager.Start(ctx, Values{KeyUserID: "21"})
	if err != nil {
		test.Fatalf("start: %v", err)
	}
	if !server.Exists(redisKeyPrefix + started.ID) {
		test.Fatalf("expected bag in redis")
	}
	if err := manager.Destroy(ctx, token); err != nil {
		test.Fatalf("destroy: %v", err)
	}
	if server.Exists(redisKeyPrefix + started.ID) {
		test.Fatalf("expected bag removed")
	}
	if _, err := manager.Resolve(ctx, token); !errors.Is(err, ErrSessionNotFound) {
		test.Fatalf("expected ErrSessionNotFound after logout, got %v", err)
	}
}

func TestDialRedisUnavailable(test *testing.T) {
	test.Parallel()
	server := miniredis.RunT(test)
	addr := server.Addr()
	server.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := DialRedis(ctx, addr, "", 0); !errors.Is(err, ErrStoreUnavailable) {
		test.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}
