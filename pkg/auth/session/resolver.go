package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/naili/storefront/pkg/auth"
	"github.com/naili/storefront/pkg/config"
	"github.com/naili/storefront/pkg/logger"
	redisclient "github.com/naili/storefront/pkg/redis"
)

// ErrProfileNotFound is returned by a ProfileLoader when the user has no profile row.
var ErrProfileNotFound = errors.New("profile not found")

// ProfileLoader reads customer profiles from the remote store.
type ProfileLoader interface {
	FindProfile(ctx context.Context, userID string) (*Profile, error)
}

// Resolver turns a bearer token into a Session.
type Resolver struct {
	cfg      config.AuthConfig
	profiles ProfileLoader
	cache    redisclient.ProfileCache
	logg     *logger.Logger
}

// NewResolver wires a resolver. cache may be nil, in which case profiles are always loaded.
func NewResolver(cfg config.AuthConfig, profiles ProfileLoader, cache redisclient.ProfileCache, logg *logger.Logger) (*Resolver, error) {
	if profiles == nil {
		return nil, fmt.Errorf("profile loader is required")
	}
	return &Resolver{cfg: cfg, profiles: profiles, cache: cache, logg: logg}, nil
}

// Resolve returns Guest for an empty token. Invalid tokens are errors; a missing
// profile still yields an Authenticated session with a nil Profile.
func (r *Resolver) Resolve(ctx context.Context, token, deviceID string) (Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Guest{DeviceID: strings.TrimSpace(deviceID)}, nil
	}

	claims, err := auth.ParseAccessToken(r.cfg, token)
	if err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}
	userID := claims.UserID()

	profile, err := r.profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	return Authenticated{UserID: userID, Email: claims.Email, Profile: profile}, nil
}

// Forget evicts the cached profile of userID, used on sign-out.
func (r *Resolver) Forget(ctx context.Context, userID string) {
	if r.cache == nil || userID == "" {
		return
	}
	if err := r.cache.Del(ctx, r.cache.ProfileKey(userID)); err != nil {
		r.logg.Warn(r.logg.WithField(ctx, "error", err.Error()), "profile cache eviction failed")
	}
}

func (r *Resolver) profile(ctx context.Context, userID string) (*Profile, error) {
	if cached, ok := r.cached(ctx, userID); ok {
		return cached, nil
	}

	profile, err := r.profiles.FindProfile(ctx, userID)
	if errors.Is(err, ErrProfileNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	r.store(ctx, profile)
	return profile, nil
}

func (r *Resolver) cached(ctx context.Context, userID string) (*Profile, bool) {
	if r.cache == nil {
		return nil, false
	}
	raw, err := r.cache.Get(ctx, r.cache.ProfileKey(userID))
	if err != nil {
		if !redisclient.IsMiss(err) {
			r.logg.Warn(r.logg.WithField(ctx, "error", err.Error()), "profile cache read failed")
		}
		return nil, false
	}
	var profile Profile
	if err := json.Unmarshal([]byte(raw), &profile); err != nil {
		return nil, false
	}
	return &profile, true
}

func (r *Resolver) store(ctx context.Context, profile *Profile) {
	if r.cache == nil || profile == nil || r.cfg.ProfileCacheTTL <= 0 {
		return
	}
	payload, err := json.Marshal(profile)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, r.cache.ProfileKey(profile.ID), string(payload), r.ttl()); err != nil {
		r.logg.Warn(r.logg.WithField(ctx, "error", err.Error()), "profile cache write failed")
	}
}

func (r *Resolver) ttl() time.Duration {
	return r.cfg.ProfileCacheTTL
}
