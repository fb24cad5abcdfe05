package transport

import (
	"context"

	"github.com/bedrocktools/mcgate/internal/apierr"
	"github.com/bedrocktools/mcgate/internal/obs"
	"github.com/rs/zerolog/log"
)

// Version is one rung of a contract-version negotiation: header values,
// query parameters, or both. Upstreams silently deprecate versions by
// rejecting them with an authorization-policy status, so callers list rungs
// newest first.
type Version struct {
	Name   string
	Header map[string]string
	Query  map[string]string
}

// FallbackPredicate decides whether a failed rung justifies trying the next
// one.
type FallbackPredicate func(error) bool

// PolicyRejected is the default predicate: only 401/403 policy rejections
// move to the next rung. Generic 4xx and network failures do not - they
// would fail identically on every version.
func PolicyRejected(err error) bool {
	return apierr.IsKind(err, apierr.KindUnauthenticated) || apierr.IsKind(err, apierr.KindUnauthorized)
}

// AnyError retries every rung regardless of failure shape. Used by call
// sites where the upstream is known to fail erratically.
func AnyError(err error) bool {
	return err != nil
}

// WithVersionFallback runs call once per rung, in order, stopping at the
// first success or the first failure the predicate declines. The last
// rung's error is returned when every rung is exhausted.
func WithVersionFallback(ctx context.Context, upstream string, versions []Version, shouldFallback FallbackPredicate, call func(context.Context, Version) (*Response, error)) (*Response, error) {
	if shouldFallback == nil {
		shouldFallback = PolicyRejected
	}

	var lastErr error
	for i, version := range versions {
		resp, err := call(ctx, version)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if i == len(versions)-1 || !shouldFallback(err) {
			break
		}
		obs.CountVersionFallback(upstream)
		log.Debug().
			Str("upstream", upstream).
			Str("rejected_version", version.Name).
			Str("next_version", versions[i+1].Name).
			Msg("contract version rejected, trying next rung")
	}
	return nil, lastErr
}

// ApplyVersion folds a rung's header and query values into a request.
func ApplyVersion(req Request, version Version) Request {
	if len(version.Header) > 0 {
		merged := make(map[string]string, len(req.Header)+len(version.Header))
		for k, v := range req.Header {
			merged[k] = v
		}
		for k, v := range version.Header {
			merged[k] = v
		}
		req.Header = merged
	}
	if len(version.Query) > 0 {
		query := req.Query
		if query == nil {
			query = map[string][]string{}
		} else {
			cloned := map[string][]string{}
			for k, v := range query {
				cloned[k] = v
			}
			query = cloned
		}
		for k, v := range version.Query {
			query[k] = []string{v}
		}
		req.Query = query
	}
	return req
}
