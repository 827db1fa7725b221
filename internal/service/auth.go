// Package service holds the business rules, between the HTTP handlers
// and the repositories:
//
//	handlers (HTTP) → services (rules) → repository.Store (DB)
//
// Services never touch http.Request or cookies; they take plain values,
// return models and apperror values, and leave status codes to the
// handler layer.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/silentgallery/server/internal/apperror"
	"github.com/silentgallery/server/internal/auth"
	"github.com/silentgallery/server/internal/handle"
	"github.com/silentgallery/server/internal/mailer"
	"github.com/silentgallery/server/internal/model"
	"github.com/silentgallery/server/internal/repository"
)

// LoginLinkTTL is how long a magic sign-in link stays valid. Short on
// purpose: the link lands in an inbox, and inboxes leak.
const LoginLinkTTL = 15 * time.Minute

// AuthService owns sign-in: magic links, the GitHub OAuth callback, and
// session token issuance. Accounts are keyed by email; the first sign-in
// creates the account with a generated anonymous handle.
type AuthService struct {
	users   repository.UserRepository
	tokens  *auth.TokenService
	mail    mailer.Mailer
	baseURL string
	logger  *slog.Logger
}

// NewAuthService wires an AuthService. baseURL is the externally
// reachable origin used to build magic links.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	mail mailer.Mailer,
	baseURL string,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:   users,
		tokens:  tokens,
		mail:    mail,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// AuthResult bundles the signed-in user with the issued session token so
// the handler can set the cookie and respond in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// RequestLoginLink generates a single-use sign-in token for email, stores
// its bcrypt hash, and mails the link. The raw token only ever exists in
// the link itself.
func (s *AuthService) RequestLoginLink(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return apperror.ValidationFailed("email", "a valid email address is required")
	}

	token := uuid.NewString()
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("service/auth: hashing login token: %w", err)
	}

	expiresAt := time.Now().Add(LoginLinkTTL)
	if err := s.users.SaveLoginToken(ctx, email, string(hash), expiresAt); err != nil {
		return fmt.Errorf("service/auth: saving login token: %w", err)
	}

	link := fmt.Sprintf("%s/auth/magiclink/verify?email=%s&token=%s", s.baseURL, email, token)
	if err := s.mail.SendLoginLink(ctx, email, link); err != nil {
		return fmt.Errorf("service/auth: sending login link: %w", err)
	}

	s.logger.Info("login link requested", slog.String("email", email))
	return nil
}

// VerifyLoginLink consumes the stored token for email and, when it
// matches, signs the user in — creating the account on first use.
//
// The stored token is removed before checking it, so a link can only be
// tried once no matter the outcome.
func (s *AuthService) VerifyLoginLink(ctx context.Context, email, token string) (*AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || token == "" {
		return nil, apperror.Unauthorized("invalid sign-in link")
	}

	hash, expiresAt, err := s.users.TakeLoginToken(ctx, email)
	if err != nil {
		return nil, apperror.Unauthorized("invalid or already used sign-in link")
	}
	if time.Now().After(expiresAt) {
		return nil, apperror.Unauthorized("sign-in link has expired")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)); err != nil {
		return nil, apperror.Unauthorized("invalid sign-in link")
	}

	user, err := s.ensureUser(ctx, email, "", "")
	if err != nil {
		return nil, err
	}

	return s.issueSession(user)
}

// LoginOrRegisterGitHub completes the GitHub OAuth callback: after the
// handler exchanges the code for a profile, this upserts the account by
// email and issues a session. GitHub identity only seeds the account —
// the public identity stays the generated handle.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*AuthResult, error) {
	if ghUser == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}

	email := normalizeEmail(ghUser.Email)
	if email == "" {
		// Accounts are keyed by email; a hidden GitHub email can't sign in.
		return nil, apperror.ValidationFailed("email",
			"your GitHub email is private; make it visible or use the email sign-in instead")
	}

	user, err := s.ensureUser(ctx, email, ghUser.Name, ghUser.AvatarURL)
	if err != nil {
		return nil, err
	}

	return s.issueSession(user)
}

// GetUserByID loads a user, for the /api/me endpoint.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	return s.users.GetUserByID(ctx, id)
}

// ValidateToken checks a session token and returns the user ID it names.
func (s *AuthService) ValidateToken(token string) (string, error) {
	return s.tokens.Validate(token)
}

// ensureUser returns the account for email, creating it with a fresh
// anonymous handle on first sign-in.
func (s *AuthService) ensureUser(ctx context.Context, email, name, image string) (*model.User, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, err
	}

	user = &model.User{
		Handle: handle.New(),
		Email:  email,
		Name:   name,
		Image:  image,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("handle", user.Handle),
	)
	return user, nil
}

func (s *AuthService) issueSession(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing session token: %w", err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
