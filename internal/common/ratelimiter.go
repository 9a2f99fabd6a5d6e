package common

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

var ErrRateLimited = errors.New("request rejected by the rate limiter")

type RateLimiter struct {
	mu           sync.Mutex
	restrictions []Restriction // Restrictions to consider
	history      []time.Time   // History of requests
	duration     time.Duration // Min duration to wait for all restrictions to be lifted
	stopwatch    Stopwatch     // Running while the server asked us to back off
	now          func() time.Time
}

func NewRateLimiter(restrictions []Restriction) *RateLimiter {
	rl := &RateLimiter{now: time.Now}
	rl.restrictions = append(rl.restrictions, restrictions...)
	for _, restriction := range restrictions {
		if restriction.Duration > rl.duration {
			rl.duration = restriction.Duration
		}
	}
	rl.stopwatch = NewStopwatch(rl.duration)
	rl.stopwatch.now = func() time.Time { return rl.now() }
	return rl
}

// Allowed decides if a request can be performed now.
// Vital requests block until the restrictions allow them or the context is done.
// Non vital requests are rejected straight away when they would have to wait
func (rl *RateLimiter) Allowed(ctx context.Context, vital bool) error {
	for {
		wait, ok := rl.reserve()
		if ok {
			return nil
		}
		if !vital {
			log.Warn().Msg("Rejecting a non vital request because restrictions do not allow it")
			return ErrRateLimited
		}
		log.Warn().Msg(fmt.Sprintf("Vital request delayed %.1f seconds", wait.Seconds()))
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// ReceivedRateLimit stops every request for the longest restriction window
func (rl *RateLimiter) ReceivedRateLimit() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.stopwatch.Start()
}

// reserve records the request in the history if it is allowed, otherwise
// returns how long to wait before trying again
func (rl *RateLimiter) reserve() (time.Duration, bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if stopped, remaining := rl.stopwatch.Stopped(); !stopped {
		return remaining, false
	}

	currentTime := rl.now()
	rl.trim(currentTime)
	analysis := rl.analyse(currentTime)
	if !analysis.allowed {
		return analysis.wait, false
	}
	rl.history = append(rl.history, currentTime)
	return 0, true
}

// Trim the current history, leaving only the requests
// that are young enough to be affected by at least one restriction
func (rl *RateLimiter) trim(currentTime time.Time) {
	index := 0
	for i := len(rl.history) - 1; i >= 0; i-- {
		if currentTime.Sub(rl.history[i]) >= rl.duration {
			index = i + 1
			break
		}
	}
	rl.history = rl.history[index:]
}

func (rl *RateLimiter) analyse(currentTime time.Time) Analysis {
	// Merge the analyses of every restriction
	var wait time.Duration
	allowed := true
	for _, restriction := range rl.restrictions {
		analysis := restriction.Analyse(rl.history, currentTime)
		allowed = allowed && analysis.allowed
		if analysis.wait > wait {
			wait = analysis.wait
		}
	}
	return Analysis{allowed, wait}
}
