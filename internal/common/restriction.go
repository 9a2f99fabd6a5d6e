package common

import "time"

// A restriction means that only the specified number of requests
// are allowed for a specific time duration
type Restriction struct {
	Requests int
	Duration time.Duration
}

type Analysis struct {
	allowed bool          // If the request is allowed
	wait    time.Duration // The minimal time to wait before the request is allowed
}

// Analyse the recent history of requests and find out
// if a new request at the provided time should be allowed or not.
// History is expected in chronological order
func (rest *Restriction) Analyse(history []time.Time, currentTime time.Time) Analysis {

	// Compute the number of requests that have been served in my duration.
	// Start counting from the end.
	// If one request is too old, the rest will be too
	count := 0
	for i := len(history) - 1; i >= 0; i-- {
		if currentTime.Sub(history[i]) >= rest.Duration {
			break
		}
		count++
	}
	if count < rest.Requests {
		return Analysis{true, 0}
	}

	// The oldest request inside the window decides when a slot frees up
	oldestRequestTime := history[len(history)-count]
	return Analysis{false, oldestRequestTime.Add(rest.Duration).Sub(currentTime)}
}
