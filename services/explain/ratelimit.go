// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package explain

import (
	"sync"
	"time"
)

// RateLimiter implements a sliding window rate limiter per provider.
//
// Description:
//
//	Limits the number of requests per minute to each hosted LLM provider
//	using a sliding window of timestamps. When the limit is exceeded the
//	Generator skips the provider for this request rather than waiting, so
//	an over-quota provider degrades to the next one in the chain.
//
// Thread Safety: Safe for concurrent use via sync.Mutex.
type RateLimiter struct {
	mu      sync.Mutex
	limits  map[string]int
	windows map[string][]int64 // timestamps in Unix milliseconds
	now     func() time.Time   // injectable clock for tests
}

// NewRateLimiter creates a rate limiter with per-provider limits
// (requests per minute). Providers not in the map are not rate-limited.
func NewRateLimiter(limitsPerMin map[string]int) *RateLimiter {
	limits := make(map[string]int, len(limitsPerMin))
	for k, v := range limitsPerMin {
		limits[k] = v
	}
	return &RateLimiter{
		limits:  limits,
		windows: make(map[string][]int64),
		now:     time.Now,
	}
}

// Allow checks whether a request to the given provider is within the rate
// limit, recording the timestamp if so.
//
// Outputs:
//   - bool: True if the request is allowed.
//   - time.Duration: If rate-limited, how long until the window frees a
//     slot. Zero if allowed.
func (r *RateLimiter) Allow(provider string) (bool, time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	limit, limited := r.limits[provider]
	if !limited {
		return true, 0
	}

	nowMs := r.now().UnixMilli()
	cutoff := nowMs - time.Minute.Milliseconds()

	// Drop timestamps outside the window.
	window := r.windows[provider]
	kept := window[:0]
	for _, ts := range window {
		if ts > cutoff {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= limit {
		wait := time.Duration(kept[0]-cutoff) * time.Millisecond
		r.windows[provider] = kept
		return false, wait
	}

	r.windows[provider] = append(kept, nowMs)
	return true, 0
}
