package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/silentgallery/server/internal/model"
)

func TestUpsertReaction_OneRowPerUser(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "calm-dreamer-0001")
	now := time.Now().UTC()
	post := createTestPost(t, db, user.ID, now.Add(-time.Hour), now.Add(time.Hour))

	first := &model.Reaction{PostID: post.ID, UserID: user.ID, Kind: model.KindMoon}
	if err := db.UpsertReaction(ctx, first); err != nil {
		t.Fatalf("UpsertReaction() error = %v", err)
	}
	if first.ID == "" {
		t.Fatal("UpsertReaction() did not assign an ID")
	}

	// Re-reacting switches kind in place instead of adding a row.
	second := &model.Reaction{PostID: post.ID, UserID: user.ID, Kind: model.KindFire}
	if err := db.UpsertReaction(ctx, second); err != nil {
		t.Fatalf("second UpsertReaction() error = %v", err)
	}

	// The overwrite keeps the original row, and the caller is told the
	// surviving id — never one that exists nowhere.
	if second.ID != first.ID {
		t.Errorf("second upsert id = %q, want the stored row's id %q", second.ID, first.ID)
	}

	reactions, err := db.ListReactionsByPost(ctx, post.ID)
	if err != nil {
		t.Fatalf("ListReactionsByPost() error = %v", err)
	}
	if len(reactions) != 1 {
		t.Fatalf("reaction count = %d, want 1", len(reactions))
	}
	if reactions[0].ID != second.ID {
		t.Errorf("stored id = %q, want the echoed %q", reactions[0].ID, second.ID)
	}
	if reactions[0].Kind != model.KindFire {
		t.Errorf("kind = %q, want the replacement %q", reactions[0].Kind, model.KindFire)
	}
	if reactions[0].UserID != user.ID {
		t.Errorf("userID = %q, want %q", reactions[0].UserID, user.ID)
	}
}

func TestUpsertReaction_DistinctUsers(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	a := createTestUser(t, db, "calm-dreamer-0001")
	b := createTestUser(t, db, "still-light-0002")
	now := time.Now().UTC()
	post := createTestPost(t, db, a.ID, now.Add(-time.Hour), now.Add(time.Hour))

	if err := db.UpsertReaction(ctx, &model.Reaction{PostID: post.ID, UserID: a.ID, Kind: model.KindMoon}); err != nil {
		t.Fatalf("UpsertReaction() error = %v", err)
	}
	if err := db.UpsertReaction(ctx, &model.Reaction{PostID: post.ID, UserID: b.ID, Kind: model.KindMoon}); err != nil {
		t.Fatalf("UpsertReaction() error = %v", err)
	}

	reactions, err := db.ListReactionsByPost(ctx, post.ID)
	if err != nil {
		t.Fatalf("ListReactionsByPost() error = %v", err)
	}
	if len(reactions) != 2 {
		t.Errorf("reaction count = %d, want 2", len(reactions))
	}
}

func TestDeleteReaction(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	a := createTestUser(t, db, "calm-dreamer-0001")
	b := createTestUser(t, db, "still-light-0002")
	now := time.Now().UTC()
	post := createTestPost(t, db, a.ID, now.Add(-time.Hour), now.Add(time.Hour))

	if err := db.UpsertReaction(ctx, &model.Reaction{PostID: post.ID, UserID: a.ID, Kind: model.KindLeaf}); err != nil {
		t.Fatalf("UpsertReaction() error = %v", err)
	}
	if err := db.UpsertReaction(ctx, &model.Reaction{PostID: post.ID, UserID: b.ID, Kind: model.KindWater}); err != nil {
		t.Fatalf("UpsertReaction() error = %v", err)
	}

	// Deleting only removes the caller's own row.
	if err := db.DeleteReaction(ctx, post.ID, a.ID); err != nil {
		t.Fatalf("DeleteReaction() error = %v", err)
	}

	reactions, err := db.ListReactionsByPost(ctx, post.ID)
	if err != nil {
		t.Fatalf("ListReactionsByPost() error = %v", err)
	}
	if len(reactions) != 1 || reactions[0].UserID != b.ID {
		t.Errorf("remaining reactions = %+v, want only the other user's", reactions)
	}

	// Deleting again is not an error.
	if err := db.DeleteReaction(ctx, post.ID, a.ID); err != nil {
		t.Errorf("repeat DeleteReaction() error = %v, want nil", err)
	}
}
