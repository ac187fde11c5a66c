package session

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/naili/storefront/pkg/auth"
	"github.com/naili/storefront/pkg/config"
	"github.com/naili/storefront/pkg/logger"
)

var testCfg = config.AuthConfig{JWTSecret: "secret", ProfileCacheTTL: time.Minute}

func TestResolveEmptyTokenIsGuest(t *testing.T) {
	r := newTestResolver(t, &stubProfiles{}, newStubCache())

	s, err := r.Resolve(context.Background(), "  ", "device-9")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	guest, ok := s.(Guest)
	if !ok {
		t.Fatalf("expected Guest, got %T", s)
	}
	if guest.DeviceID != "device-9" || guest.Key() != "guest:device-9" {
		t.Fatalf("unexpected guest %+v", guest)
	}
	if IsAuthenticated(s) || UserID(s) != "" {
		t.Fatal("guest must not look authenticated")
	}
}

func TestResolveLoadsAndCachesProfile(t *testing.T) {
	profiles := &stubProfiles{profile: &Profile{ID: "user-1", FullName: "Ada Obi", Address: "12 Allen Ave"}}
	cache := newStubCache()
	r := newTestResolver(t, profiles, cache)
	token := mintToken(t, "user-1")

	for i := 0; i < 2; i++ {
		s, err := r.Resolve(context.Background(), token, "")
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		authed, ok := s.(Authenticated)
		if !ok {
			t.Fatalf("expected Authenticated, got %T", s)
		}
		if authed.UserID != "user-1" || authed.Email != "ada@example.com" {
			t.Fatalf("unexpected session %+v", authed)
		}
		if authed.Profile == nil || authed.Profile.FullName != "Ada Obi" {
			t.Fatalf("unexpected profile %+v", authed.Profile)
		}
	}

	if profiles.calls != 1 {
		t.Fatalf("expected one profile load thanks to cache, got %d", profiles.calls)
	}
	if cache.ttls["sf:profile:user-1"] != time.Minute {
		t.Fatalf("expected cached profile with ttl, got %v", cache.ttls)
	}
}

func TestResolveMissingProfile(t *testing.T) {
	r := newTestResolver(t, &stubProfiles{err: ErrProfileNotFound}, newStubCache())

	s, err := r.Resolve(context.Background(), mintToken(t, "user-2"), "")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	authed := s.(Authenticated)
	if authed.Profile != nil {
		t.Fatalf("expected nil profile, got %+v", authed.Profile)
	}
}

func TestResolveCacheFailureFallsBackToStore(t *testing.T) {
	profiles := &stubProfiles{profile: &Profile{ID: "user-1"}}
	cache := newStubCache()
	cache.getErr = errors.New("redis down")
	r := newTestResolver(t, profiles, cache)

	if _, err := r.Resolve(context.Background(), mintToken(t, "user-1"), ""); err != nil {
		t.Fatalf("resolve should degrade, got %v", err)
	}
	if profiles.calls != 1 {
		t.Fatalf("expected direct profile load, got %d", profiles.calls)
	}
}

func TestResolveInvalidTokenAndStoreErrors(t *testing.T) {
	r := newTestResolver(t, &stubProfiles{err: errors.New("db down")}, nil)

	if _, err := r.Resolve(context.Background(), "not-a-jwt", ""); err == nil {
		t.Fatal("expected invalid token error")
	}
	if _, err := r.Resolve(context.Background(), mintToken(t, "user-1"), ""); err == nil {
		t.Fatal("expected profile load error")
	}
}

func TestForgetEvictsCache(t *testing.T) {
	cache := newStubCache()
	cache.data["sf:profile:user-1"] = `{"id":"user-1"}`
	r := newTestResolver(t, &stubProfiles{}, cache)

	r.Forget(context.Background(), "user-1")
	if _, ok := cache.data["sf:profile:user-1"]; ok {
		t.Fatal("expected profile to be evicted")
	}
}

func newTestResolver(t *testing.T, profiles ProfileLoader, cache *stubCache) *Resolver {
	t.Helper()
	var r *Resolver
	var err error
	if cache == nil {
		r, err = NewResolver(testCfg, profiles, nil, logger.Discard())
	} else {
		r, err = NewResolver(testCfg, profiles, cache, logger.Discard())
	}
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}
	return r
}

func mintToken(t *testing.T, userID string) string {
	t.Helper()
	token, err := auth.MintAccessToken(testCfg, time.Now(), userID, "ada@example.com", time.Hour)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	return token
}

type stubProfiles struct {
	profile *Profile
	err     error
	calls   int
}

func (s *stubProfiles) FindProfile(ctx context.Context, userID string) (*Profile, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.profile, nil
}

type stubCache struct {
	data   map[string]string
	ttls   map[string]time.Duration
	getErr error
}

func newStubCache() *stubCache {
	return &stubCache{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (s *stubCache) Get(ctx context.Context, key string) (string, error) {
	if s.getErr != nil {
		return "", s.getErr
	}
	v, ok := s.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (s *stubCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	s.data[key] = fmt.Sprint(value)
	s.ttls[key] = ttl
	return nil
}

func (s *stubCache) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.data, key)
	}
	return nil
}

func (s *stubCache) ProfileKey(userID string) string {
	return "sf:profile:" + userID
}
