package games

import (
	"context"
	"errors"
	"log/slog"
)

// Resolver is the cached front of the store client. Resolve never returns
// an error: the worst case is a failure marker, which is itself cached so
// the id is not retried until an explicit refresh.
type Resolver struct {
	cache  *Cache
	client *Client
	logger *slog.Logger
}

func NewResolver(cache *Cache, client *Client, logger *slog.Logger) *Resolver {
	return &Resolver{cache: cache, client: client, logger: logger}
}

// Resolve returns the display name for an app id, from cache when possible.
// Cached failure markers count as hits; only Refresh re-queries them. A
// non-numeric id cannot be a store app id and is cached as its own name.
func (r *Resolver) Resolve(ctx context.Context, gameID string) string {
	if name, ok := r.cache.Get(gameID); ok {
		return name
	}
	if !numericID(gameID) {
		r.cachePut(gameID, gameID)
		return gameID
	}
	return r.fetch(ctx, gameID)
}

// Refresh re-queries one id regardless of what the cache holds. It returns
// the fresh name, or an error when the lookup failed; on failure the cache
// keeps whatever it had rather than downgrading a good name to a marker.
func (r *Resolver) Refresh(ctx context.Context, gameID string) (string, error) {
	if !numericID(gameID) {
		r.cachePut(gameID, gameID)
		return gameID, nil
	}
	name, err := r.client.Lookup(ctx, gameID)
	if err != nil {
		var lerr *LookupError
		if errors.As(err, &lerr) {
			if _, ok := r.cache.Get(gameID); !ok {
				r.cachePut(gameID, lerr.Marker())
			}
		}
		return "", err
	}
	r.cachePut(gameID, name)
	return name, nil
}

// RefreshAll re-queries every cached id whose entry is a failure marker.
// It returns the ids that still fail.
func (r *Resolver) RefreshAll(ctx context.Context) []string {
	var stillFailing []string
	for gameID, name := range r.cache.All() {
		if !IsFailureMarker(name) {
			continue
		}
		if err := ctx.Err(); err != nil {
			stillFailing = append(stillFailing, gameID)
			continue
		}
		fresh, err := r.client.Lookup(ctx, gameID)
		if err != nil {
			stillFailing = append(stillFailing, gameID)
			continue
		}
		r.cachePut(gameID, fresh)
	}
	return stillFailing
}

func (r *Resolver) fetch(ctx context.Context, gameID string) string {
	name, err := r.client.Lookup(ctx, gameID)
	if err != nil {
		var lerr *LookupError
		if !errors.As(err, &lerr) {
			lerr = &LookupError{GameID: gameID, Kind: FailOffline, Err: err}
		}
		if r.logger != nil {
			r.logger.Warn("game name lookup failed",
				"game_id", gameID,
				"kind", string(lerr.Kind),
			)
		}
		marker := lerr.Marker()
		r.cachePut(gameID, marker)
		return marker
	}
	r.cachePut(gameID, name)
	return name
}

func (r *Resolver) cachePut(gameID, name string) {
	if err := r.cache.Put(gameID, name); err != nil && r.logger != nil {
		r.logger.Error("cannot persist game name cache", "error", err)
	}
}

func numericID(id string) bool {
	if id == "" {
		return false
	}
	for _, r := range id {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
