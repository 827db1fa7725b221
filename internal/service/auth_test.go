package service

import (
	"context"
	"errors"
	"net/url"
	"regexp"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/silentgallery/server/internal/apperror"
	"github.com/silentgallery/server/internal/auth"
)

// captureMailer records the last login link instead of sending it.
type captureMailer struct {
	email string
	url   string
}

func (m *captureMailer) SendLoginLink(_ context.Context, email, link string) error {
	m.email = email
	m.url = link
	return nil
}

func newTestAuthService(t *testing.T) (*AuthService, *mockStore, *captureMailer) {
	t.Helper()
	store := newMockStore()
	tokens, err := auth.NewTokenService("test-secret-0123456789abcdef")
	if err != nil {
		t.Fatalf("NewTokenService() error = %v", err)
	}
	mail := &captureMailer{}
	svc := NewAuthService(store, tokens, mail, "http://localhost:8080", testLogger(t))
	return svc, store, mail
}

// tokenFromLink pulls the raw token out of a captured magic link.
func tokenFromLink(t *testing.T, link string) string {
	t.Helper()
	u, err := url.Parse(link)
	if err != nil {
		t.Fatalf("parsing login link %q: %v", link, err)
	}
	token := u.Query().Get("token")
	if token == "" {
		t.Fatalf("login link %q has no token", link)
	}
	return token
}

func TestRequestLoginLink(t *testing.T) {
	svc, store, mail := newTestAuthService(t)
	ctx := context.Background()

	if err := svc.RequestLoginLink(ctx, "  Dreamer@Example.COM "); err != nil {
		t.Fatalf("RequestLoginLink() error = %v", err)
	}

	if mail.email != "dreamer@example.com" {
		t.Errorf("mailed to %q, want normalized address", mail.email)
	}

	// The stored value must be a hash of the token, never the token.
	lt, ok := store.loginTokens["dreamer@example.com"]
	if !ok {
		t.Fatal("no login token stored")
	}
	raw := tokenFromLink(t, mail.url)
	if lt.hash == raw {
		t.Error("login token stored in plaintext")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(lt.hash), []byte(raw)); err != nil {
		t.Errorf("stored hash does not match mailed token: %v", err)
	}
}

func TestRequestLoginLink_InvalidEmail(t *testing.T) {
	svc, _, _ := newTestAuthService(t)

	for _, email := range []string{"", "   ", "not-an-email"} {
		err := svc.RequestLoginLink(context.Background(), email)
		if !errors.Is(err, apperror.ErrValidation) {
			t.Errorf("RequestLoginLink(%q) error = %v, want validation error", email, err)
		}
	}
}

func TestVerifyLoginLink_CreatesAccountOnFirstSignIn(t *testing.T) {
	svc, _, mail := newTestAuthService(t)
	ctx := context.Background()

	if err := svc.RequestLoginLink(ctx, "soul@example.com"); err != nil {
		t.Fatalf("RequestLoginLink() error = %v", err)
	}

	result, err := svc.VerifyLoginLink(ctx, "soul@example.com", tokenFromLink(t, mail.url))
	if err != nil {
		t.Fatalf("VerifyLoginLink() error = %v", err)
	}

	if result.User.Email != "soul@example.com" {
		t.Errorf("user email = %q", result.User.Email)
	}
	handlePattern := regexp.MustCompile(`^[a-z]+-[a-z]+-\d{4}$`)
	if !handlePattern.MatchString(result.User.Handle) {
		t.Errorf("handle %q does not match the generated format", result.User.Handle)
	}

	userID, err := svc.ValidateToken(result.Token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if userID != result.User.ID {
		t.Errorf("token subject = %q, want %q", userID, result.User.ID)
	}
}

func TestVerifyLoginLink_ReusesExistingAccount(t *testing.T) {
	svc, store, mail := newTestAuthService(t)
	ctx := context.Background()

	existing := seedUser(t, store, "spirit@example.com")

	if err := svc.RequestLoginLink(ctx, "spirit@example.com"); err != nil {
		t.Fatalf("RequestLoginLink() error = %v", err)
	}
	result, err := svc.VerifyLoginLink(ctx, "spirit@example.com", tokenFromLink(t, mail.url))
	if err != nil {
		t.Fatalf("VerifyLoginLink() error = %v", err)
	}

	if result.User.ID != existing.ID {
		t.Errorf("signed in as %q, want existing account %q", result.User.ID, existing.ID)
	}
	if len(store.users) != 1 {
		t.Errorf("user count = %d after repeat sign-in, want 1", len(store.users))
	}
}

func TestVerifyLoginLink_SingleUse(t *testing.T) {
	svc, _, mail := newTestAuthService(t)
	ctx := context.Background()

	if err := svc.RequestLoginLink(ctx, "light@example.com"); err != nil {
		t.Fatalf("RequestLoginLink() error = %v", err)
	}
	token := tokenFromLink(t, mail.url)

	if _, err := svc.VerifyLoginLink(ctx, "light@example.com", token); err != nil {
		t.Fatalf("first VerifyLoginLink() error = %v", err)
	}
	_, err := svc.VerifyLoginLink(ctx, "light@example.com", token)
	if !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("second VerifyLoginLink() error = %v, want unauthorized", err)
	}
}

func TestVerifyLoginLink_WrongToken(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	if err := svc.RequestLoginLink(ctx, "shadow@example.com"); err != nil {
		t.Fatalf("RequestLoginLink() error = %v", err)
	}
	_, err := svc.VerifyLoginLink(ctx, "shadow@example.com", "guessed-token")
	if !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("VerifyLoginLink() error = %v, want unauthorized", err)
	}
}

func TestVerifyLoginLink_Expired(t *testing.T) {
	svc, store, _ := newTestAuthService(t)
	ctx := context.Background()

	hash, err := bcrypt.GenerateFromPassword([]byte("stale-token"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	store.loginTokens["observer@example.com"] = loginToken{
		hash:      string(hash),
		expiresAt: time.Now().Add(-time.Minute),
	}

	_, err = svc.VerifyLoginLink(ctx, "observer@example.com", "stale-token")
	if !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("VerifyLoginLink() error = %v, want unauthorized", err)
	}
}

func TestLoginOrRegisterGitHub(t *testing.T) {
	svc, store, _ := newTestAuthService(t)
	ctx := context.Background()

	result, err := svc.LoginOrRegisterGitHub(ctx, &auth.GitHubUser{
		ID:        42,
		Login:     "octocat",
		Name:      "Octo Cat",
		Email:     "Octo@Example.com",
		AvatarURL: "https://example.com/a.png",
	})
	if err != nil {
		t.Fatalf("LoginOrRegisterGitHub() error = %v", err)
	}

	if result.User.Email != "octo@example.com" {
		t.Errorf("email = %q, want normalized", result.User.Email)
	}
	if result.User.Handle == "octocat" {
		t.Error("handle must be generated, not the GitHub login")
	}
	if result.Token == "" {
		t.Error("no session token issued")
	}

	// Second login with the same email reuses the account.
	again, err := svc.LoginOrRegisterGitHub(ctx, &auth.GitHubUser{ID: 42, Email: "octo@example.com"})
	if err != nil {
		t.Fatalf("second LoginOrRegisterGitHub() error = %v", err)
	}
	if again.User.ID != result.User.ID {
		t.Errorf("second login user = %q, want %q", again.User.ID, result.User.ID)
	}
	if len(store.users) != 1 {
		t.Errorf("user count = %d, want 1", len(store.users))
	}
}

func TestLoginOrRegisterGitHub_HiddenEmail(t *testing.T) {
	svc, _, _ := newTestAuthService(t)

	_, err := svc.LoginOrRegisterGitHub(context.Background(), &auth.GitHubUser{ID: 7, Login: "ghost"})
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("LoginOrRegisterGitHub() error = %v, want validation error", err)
	}
}
