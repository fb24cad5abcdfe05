// Package identity resolves account identifiers to display names. The bulk
// profile endpoint is unreliable for large or mixed-validity identifier
// sets, so a bounded worker pool of single-item lookups backs it up; the
// result map's key set always equals the deduplicated input set.
package identity

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/bedrocktools/mcgate/internal/utils"
	"github.com/bedrocktools/mcgate/upstream/xbox"
)

const (
	// The bulk endpoint rejects batches above this ceiling.
	bulkChunkLimit = 100

	// Fixed fan-out width for the single-item fallback pool.
	workerPoolWidth = 8
)

// ProfileClient is the slice of the Xbox client the resolver needs.
type ProfileClient interface {
	ProfileSettingsBatch(ctx context.Context, authHeader string, xuids []string, settings []string) ([]xbox.ProfileUser, error)
	ProfileSettingsSingle(ctx context.Context, authHeader, xuid string) (*xbox.ProfileUser, error)
}

// Resolver maps XUIDs to gamertags.
type Resolver struct {
	profiles ProfileClient
	limiter  *rate.Limiter
}

// New creates a resolver. ratePerSecond paces the fallback pool's lookups;
// zero disables pacing.
func New(profiles ProfileClient, ratePerSecond int) *Resolver {
	var limiter *rate.Limiter
	if ratePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(ratePerSecond), ratePerSecond)
	}
	return &Resolver{profiles: profiles, limiter: limiter}
}

// ResolveNames resolves ids to display names. Identifiers that fail every
// attempt map to nil - never silently dropped - so callers can rely on the
// key set matching their (deduplicated) input.
func (r *Resolver) ResolveNames(ctx context.Context, authHeader string, ids []string) (map[string]*string, error) {
	deduped := dedupe(ids)
	if len(deduped) == 0 {
		return map[string]*string{}, nil
	}

	resolved, bulkErr := r.resolveBulk(ctx, authHeader, deduped)
	if bulkErr == nil && coversAll(resolved, deduped) {
		return resolved, nil
	}

	if bulkErr != nil {
		log.Warn().Err(bulkErr).Int("ids", len(deduped)).Msg("bulk name resolution failed, falling back to worker pool")
	} else {
		log.Debug().
			Int("requested", len(deduped)).
			Int("resolved", len(resolved)).
			Msg("bulk name resolution incomplete, falling back to worker pool")
	}

	// Any bulk shortfall re-resolves the whole deduplicated list, not just
	// the missing subset. Wasteful, but the bulk path's partial results are
	// not trusted once it has misbehaved.
	return r.resolvePool(ctx, authHeader, deduped), nil
}

// coversAll reports whether every requested id has a bulk answer. Counting
// entries is not enough: the bulk endpoint has been seen returning records
// for identifiers that were never asked for, which would mask a missing one.
func coversAll(resolved map[string]*string, ids []string) bool {
	for _, id := range ids {
		if _, ok := resolved[id]; !ok {
			return false
		}
	}
	return true
}

// resolveBulk runs the chunked bulk path. The returned map only contains
// identifiers the endpoint actually answered for; records for identifiers
// outside the request are discarded.
func (r *Resolver) resolveBulk(ctx context.Context, authHeader string, ids []string) (map[string]*string, error) {
	requested := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		requested[id] = struct{}{}
	}

	resolved := make(map[string]*string, len(ids))
	for start := 0; start < len(ids); start += bulkChunkLimit {
		end := min(start+bulkChunkLimit, len(ids))
		users, err := r.profiles.ProfileSettingsBatch(ctx, authHeader, ids[start:end], []string{xbox.SettingGamertag})
		if err != nil {
			return resolved, err
		}
		for _, user := range users {
			if _, ok := requested[user.ID]; !ok {
				continue
			}
			if name := user.Setting(xbox.SettingGamertag); name != "" {
				resolved[user.ID] = utils.Ptr(name)
			}
		}
	}
	return resolved, nil
}

// resolvePool resolves every id through single-item lookups, eight at a
// time, pulling from a shared queue. Output order is not guaranteed and not
// needed; the map is keyed.
func (r *Resolver) resolvePool(ctx context.Context, authHeader string, ids []string) map[string]*string {
	queue := make(chan string, len(ids))
	for _, id := range ids {
		queue <- id
	}
	close(queue)

	resolved := make(map[string]*string, len(ids))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for range workerPoolWidth {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range queue {
				name := r.resolveOne(ctx, authHeader, id)
				mu.Lock()
				resolved[id] = name
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	return resolved
}

// resolveOne performs one single-item lookup (which itself tries the newer
// contract version first). Failure yields nil, not an error.
func (r *Resolver) resolveOne(ctx context.Context, authHeader, id string) *string {
	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return nil
		}
	}

	user, err := r.profiles.ProfileSettingsSingle(ctx, authHeader, id)
	if err != nil || user == nil {
		return nil
	}
	if name := user.Setting(xbox.SettingGamertag); name != "" {
		return utils.Ptr(name)
	}
	return nil
}

// dedupe preserves first-occurrence order.
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
