package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/silentgallery/server/internal/model"
)

// newTestDB opens an in-memory database with the full schema applied.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func createTestUser(t *testing.T, db *DB, handle string) *model.User {
	t.Helper()
	user := &model.User{Handle: handle, Email: handle + "@example.com"}
	if err := db.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("creating test user %q: %v", handle, err)
	}
	return user
}

func createTestPost(t *testing.T, db *DB, authorID string, publishAt, expireAt time.Time) *model.Post {
	t.Helper()
	post := &model.Post{
		AuthorID:  authorID,
		ImageKey:  "test.jpg",
		PublishAt: publishAt,
		ExpireAt:  expireAt,
		Visible:   true,
		CreatedAt: time.Now(),
	}
	if err := db.CreatePost(context.Background(), post, time.Now().Add(24*time.Hour)); err != nil {
		t.Fatalf("creating test post: %v", err)
	}

	// Reset the author's cooldown so a test can seed several posts from
	// one user.
	if _, err := db.conn.Exec(`UPDATE users SET next_post_at = NULL WHERE id = ?`, authorID); err != nil {
		t.Fatalf("resetting cooldown: %v", err)
	}
	return post
}
