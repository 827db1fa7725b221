package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"testing"
	"time"

	"github.com/silentgallery/server/internal/apperror"
	"github.com/silentgallery/server/internal/model"
	"github.com/silentgallery/server/internal/repository"
)

// mockStore is an in-memory repository.Store used across the service
// tests. It mirrors the real backends' observable behavior, including
// the atomic cooldown guard in CreatePost, but stores everything in
// maps so tests need no database.
type mockStore struct {
	users       map[string]*model.User
	posts       map[string]*model.Post
	reactions   map[string]*model.Reaction // keyed postID+"|"+userID
	loginTokens map[string]loginToken
	nextID      int
}

type loginToken struct {
	hash      string
	expiresAt time.Time
}

func newMockStore() *mockStore {
	return &mockStore{
		users:       make(map[string]*model.User),
		posts:       make(map[string]*model.Post),
		reactions:   make(map[string]*model.Reaction),
		loginTokens: make(map[string]loginToken),
	}
}

func (m *mockStore) genID() string {
	m.nextID++
	return fmt.Sprintf("mock-%d", m.nextID)
}

func (m *mockStore) CreateUser(_ context.Context, user *model.User) error {
	for _, u := range m.users {
		if u.Handle == user.Handle || (user.Email != "" && u.Email == user.Email) {
			return apperror.Conflict("user", user.Handle)
		}
	}
	user.ID = m.genID()
	user.CreatedAt = time.Now()
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *mockStore) GetUserByID(_ context.Context, id string) (*model.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	result := *u
	return &result, nil
}

func (m *mockStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			result := *u
			return &result, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (m *mockStore) SaveLoginToken(_ context.Context, email, tokenHash string, expiresAt time.Time) error {
	m.loginTokens[email] = loginToken{hash: tokenHash, expiresAt: expiresAt}
	return nil
}

func (m *mockStore) TakeLoginToken(_ context.Context, email string) (string, time.Time, error) {
	lt, ok := m.loginTokens[email]
	if !ok {
		return "", time.Time{}, apperror.NotFound("login token", email)
	}
	delete(m.loginTokens, email)
	return lt.hash, lt.expiresAt, nil
}

func (m *mockStore) CreatePost(_ context.Context, post *model.Post, nextPostAt time.Time) error {
	u, ok := m.users[post.AuthorID]
	if !ok {
		return apperror.NotFound("user", post.AuthorID)
	}
	if u.NextPostAt != nil && u.NextPostAt.After(post.CreatedAt) {
		return apperror.RateLimited(*u.NextPostAt)
	}
	next := nextPostAt
	u.NextPostAt = &next

	post.ID = m.genID()
	stored := *post
	m.posts[post.ID] = &stored
	return nil
}

func (m *mockStore) GetPostByID(_ context.Context, id string) (*model.Post, error) {
	p, ok := m.posts[id]
	if !ok {
		return nil, apperror.NotFound("post", id)
	}
	result := *p
	return &result, nil
}

func (m *mockStore) ListPublic(_ context.Context, now time.Time, opts repository.PostListOptions) ([]model.Post, error) {
	var result []model.Post
	for _, p := range m.posts {
		if p.PublicAt(now) {
			result = append(result, *p)
		}
	}
	return paginate(result, opts), nil
}

func (m *mockStore) ListByAuthor(_ context.Context, authorID string, opts repository.PostListOptions) ([]model.Post, error) {
	var result []model.Post
	for _, p := range m.posts {
		if p.AuthorID == authorID && p.Visible {
			result = append(result, *p)
		}
	}
	return paginate(result, opts), nil
}

func (m *mockStore) RandomPublic(ctx context.Context, now time.Time) (*model.Post, error) {
	posts, err := m.ListPublic(ctx, now, repository.PostListOptions{Limit: 1})
	if err != nil || len(posts) == 0 {
		return nil, err
	}
	return &posts[0], nil
}

func paginate(posts []model.Post, opts repository.PostListOptions) []model.Post {
	sort.Slice(posts, func(i, j int) bool {
		return posts[i].PublishAt.After(posts[j].PublishAt)
	})
	if opts.Cursor != nil {
		filtered := posts[:0]
		for _, p := range posts {
			if !p.PublishAt.After(*opts.Cursor) {
				filtered = append(filtered, p)
			}
		}
		posts = filtered
	}
	if opts.Limit > 0 && opts.Limit < len(posts) {
		posts = posts[:opts.Limit]
	}
	return posts
}

func (m *mockStore) UpsertReaction(_ context.Context, reaction *model.Reaction) error {
	key := reaction.PostID + "|" + reaction.UserID
	reaction.CreatedAt = time.Now()
	if existing, ok := m.reactions[key]; ok {
		existing.Kind = reaction.Kind
		existing.CreatedAt = reaction.CreatedAt
		reaction.ID = existing.ID
		return nil
	}
	reaction.ID = m.genID()
	stored := *reaction
	m.reactions[key] = &stored
	return nil
}

func (m *mockStore) ListReactionsByPost(_ context.Context, postID string) ([]model.Reaction, error) {
	var result []model.Reaction
	for _, r := range m.reactions {
		if r.PostID == postID {
			result = append(result, *r)
		}
	}
	return result, nil
}

func (m *mockStore) DeleteReaction(_ context.Context, postID, userID string) error {
	delete(m.reactions, postID+"|"+userID)
	return nil
}

func (m *mockStore) Close() error { return nil }

var _ repository.Store = (*mockStore)(nil)

// testLogger returns a logger that only surfaces errors, keeping test
// output readable.
func testLogger(t *testing.T) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// seedUser inserts a user directly into the mock store.
func seedUser(t *testing.T, store *mockStore, email string) *model.User {
	t.Helper()
	user := &model.User{Handle: "quiet-wanderer-" + fmt.Sprint(1000 + store.nextID), Email: email}
	if err := store.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("seeding user: %v", err)
	}
	return user
}

// seedPost inserts a post directly into the mock store, bypassing the
// cooldown guard, so tests can shape the feed freely.
func seedPost(t *testing.T, store *mockStore, authorID string, publishAt, expireAt time.Time, visible bool) *model.Post {
	t.Helper()
	post := &model.Post{
		ID:        store.genID(),
		AuthorID:  authorID,
		ImageKey:  "seed.jpg",
		PublishAt: publishAt,
		ExpireAt:  expireAt,
		Visible:   visible,
		CreatedAt: publishAt,
	}
	stored := *post
	store.posts[post.ID] = &stored
	return post
}
