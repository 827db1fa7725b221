// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered account.
//
// Identity comes from an external provider (magic-link email or GitHub
// OAuth) — the app never stores passwords. The pseudonymous handle is the
// only name other users ever see; email and display name stay private.
//
// WHY NextPostAt *time.Time (not time.Time)?
// A nil NextPostAt means the user has never posted and may post right away.
// A zero time.Time would serialize as "0001-01-01..." and need a sentinel
// check at every call site; the pointer maps cleanly onto the nullable
// column and makes "no cooldown" explicit.
type User struct {
	ID         string     `json:"id"         db:"id"`
	Handle     string     `json:"handle"     db:"handle"`       // e.g. "quiet-wanderer-0042"
	Email      string     `json:"email"      db:"email"`        // may be empty (stored as NULL)
	Name       string     `json:"name"       db:"name"`         // optional display name
	Image      string     `json:"image"      db:"image"`        // optional avatar URL
	CreatedAt  time.Time  `json:"createdAt"  db:"created_at"`
	NextPostAt *time.Time `json:"nextPostAt" db:"next_post_at"` // nil or past = may post now
}

// CanPostAt reports whether the user is allowed to create a post at t.
func (u *User) CanPostAt(t time.Time) bool {
	return u.NextPostAt == nil || !u.NextPostAt.After(t)
}
