// Package timewindow holds the time-based publication policy: random
// publication drift, the fixed retention window, and the posting cooldown.
//
// Everything here is pure computation over a caller-supplied "now" — the
// caller persists the results. Keeping the arithmetic in one leaf package
// means the repositories and services never hard-code a duration, and the
// invariants (expireAt = publishAt + Retention, exactly) are testable
// without a database or a clock abstraction.
package timewindow

import (
	"math/rand/v2"
	"time"
)

const (
	// DriftMax bounds the random delay between submitting a photo and it
	// becoming publicly visible. The drift is uniform in [0, DriftMax).
	// It is deliberately not cryptographic — its only job is to decouple
	// "when I posted" from "when it appeared".
	DriftMax = 3 * time.Hour

	// Retention is how long a post stays in the public feed after it
	// publishes. Fixed for every post; not configurable.
	Retention = 7 * 24 * time.Hour

	// PostCooldown is the minimum gap between two submissions by the same
	// user, measured from submission time — not from publish time, so
	// drift never extends or shortens the wait.
	PostCooldown = 24 * time.Hour
)

// Plan computes the publication window for a post submitted at now:
// publishAt = now plus a uniform random drift in [0, DriftMax), and
// expireAt = publishAt + Retention.
func Plan(now time.Time) (publishAt, expireAt time.Time) {
	drift := time.Duration(rand.Int64N(int64(DriftMax)))
	publishAt = now.Add(drift)
	return publishAt, publishAt.Add(Retention)
}

// NextAllowed returns the earliest instant the author may post again after
// submitting at submittedAt.
func NextAllowed(submittedAt time.Time) time.Time {
	return submittedAt.Add(PostCooldown)
}
