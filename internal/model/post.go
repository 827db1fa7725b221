package model

import "time"

// Post is a single published photo.
//
// A post is conceptually immutable once created: PublishAt and ExpireAt are
// fixed at creation time, and only moderation may flip Visible afterwards.
// The image itself lives in blob storage under ImageKey; the row only holds
// the key.
type Post struct {
	ID        string    `json:"id"        db:"id"`
	AuthorID  string    `json:"authorId"  db:"author_id"`
	ImageKey  string    `json:"imageKey"  db:"image_key"`
	PublishAt time.Time `json:"publishAt" db:"publish_at"` // when it enters the public feed
	ExpireAt  time.Time `json:"expireAt"  db:"expire_at"`  // when it leaves the public feed
	Visible   bool      `json:"visible"   db:"visible"`    // moderation soft-delete flag
	CreatedAt time.Time `json:"createdAt" db:"created_at"` // submission time (before drift)
}

// PublicAt reports whether the post belongs to the public feed at t:
// already published, not yet expired, and not moderated away.
func (p *Post) PublicAt(t time.Time) bool {
	return p.Visible && !p.PublishAt.After(t) && p.ExpireAt.After(t)
}
