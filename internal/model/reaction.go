package model

import "time"

// Reaction kinds. Deliberately abstract and non-numeric — the product
// surfaces no like counts, only these small symbols.
const (
	KindMoon    = "moon"
	KindFeather = "feather"
	KindWater   = "water"
	KindFire    = "fire"
	KindLeaf    = "leaf"
)

// ReactionKinds lists every valid kind, in display order.
var ReactionKinds = []string{KindMoon, KindFeather, KindWater, KindFire, KindLeaf}

// ValidReactionKind reports whether kind is one of the fixed symbol set.
func ValidReactionKind(kind string) bool {
	switch kind {
	case KindMoon, KindFeather, KindWater, KindFire, KindLeaf:
		return true
	}
	return false
}

// Reaction is one user's response to one post. At most one row exists per
// (PostID, UserID) pair; re-reacting overwrites Kind and CreatedAt in place.
//
// UserID may be empty on rows read back from the store (legacy/seeded rows
// are tolerated), but every write path sets it.
type Reaction struct {
	ID        string    `json:"id"        db:"id"`
	PostID    string    `json:"postId"    db:"post_id"`
	UserID    string    `json:"userId"    db:"user_id"`
	Kind      string    `json:"kind"      db:"kind"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
