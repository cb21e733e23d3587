package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-blog-api/internal/domain"
	"github.com/go-blog-api/internal/pkg/id"
	pkgtoken "github.com/go-blog-api/internal/pkg/token"
	"golang.org/x/crypto/bcrypt"
)

type Service interface {
	Login(ctx context.Context, email, password string) (bearer, refreshToken string, session *domain.Session, err error)
	Refresh(ctx context.Context, refreshToken string) (bearer, newRefreshToken string, err error)
	Logout(ctx context.Context, sessionID string) error
}

type sessionStore interface {
	Create(ctx context.Context, s *domain.Session) error
	FindByRefreshToken(ctx context.Context, refreshToken string) (*domain.Session, error)
	RotateRefreshToken(ctx context.Context, sessionID, refreshToken string, expiresAt int64) error
	Disable(ctx context.Context, sessionID string) error
}

type accountStore interface {
	FindByEmailNotDeleted(ctx context.Context, email string) (*domain.Account, error)
	Get(ctx context.Context, accountID string) (*domain.Account, error)
}

type tokenSigner interface {
	Sign(accountID, blogID, role, sessionID string) (string, error)
}

type service struct {
	repo       sessionStore
	accounts   accountStore
	signer     tokenSigner
	refreshDur time.Duration
}

type ServiceDeps struct {
	SessionRepo sessionStore
	AccountRepo accountStore
	TokenSigner tokenSigner
	RefreshDur  time.Duration
}

func NewService(deps ServiceDeps) Service {
	return &service{
		repo:       deps.SessionRepo,
		accounts:   deps.AccountRepo,
		signer:     deps.TokenSigner,
		refreshDur: deps.RefreshDur,
	}
}

// Login checks the password and opens a session. Unknown email and wrong
// password produce the same error; store failures pass through unmasked.
func (s *service) Login(ctx context.Context, email, password string) (string, string, *domain.Session, error) {
	a, err := s.accounts.FindByEmailNotDeleted(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", "", nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
		}
		return "", "", nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)); err != nil {
		return "", "", nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}
	refreshToken, err := pkgtoken.NewRefreshToken()
	if err != nil {
		return "", "", nil, err
	}
	now := time.Now().UTC()
	sess := &domain.Session{
		SessionID:        id.New(),
		AccountID:        a.AccountID,
		Enable:           true,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: now.Add(s.refreshDur).Unix(),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.repo.Create(ctx, sess); err != nil {
		return "", "", nil, err
	}
	bearer, err := s.signer.Sign(a.AccountID, a.BlogID, primaryRole(a), sess.SessionID)
	if err != nil {
		return "", "", nil, err
	}
	sess.Account = a
	return bearer, refreshToken, sess, nil
}

// Refresh rotates the refresh token and issues a fresh access token. The old
// refresh token is unusable once this returns.
func (s *service) Refresh(ctx context.Context, refreshToken string) (string, string, error) {
	sess, err := s.repo.FindByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", "", fmt.Errorf("invalid refresh token: %w", domain.ErrUnauthorized)
		}
		return "", "", err
	}
	if !sess.Enable || sess.RefreshExpiresAt < time.Now().Unix() {
		return "", "", fmt.Errorf("session expired: %w", domain.ErrUnauthorized)
	}
	a, err := s.accounts.Get(ctx, sess.AccountID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", "", fmt.Errorf("account not found: %w", domain.ErrUnauthorized)
		}
		return "", "", err
	}
	newToken, err := pkgtoken.NewRefreshToken()
	if err != nil {
		return "", "", err
	}
	expiresAt := time.Now().UTC().Add(s.refreshDur).Unix()
	if err := s.repo.RotateRefreshToken(ctx, sess.SessionID, newToken, expiresAt); err != nil {
		return "", "", err
	}
	bearer, err := s.signer.Sign(a.AccountID, a.BlogID, primaryRole(a), sess.SessionID)
	if err != nil {
		return "", "", err
	}
	return bearer, newToken, nil
}

func (s *service) Logout(ctx context.Context, sessionID string) error {
	return s.repo.Disable(ctx, sessionID)
}

// primaryRole prefers admin when the account carries it.
func primaryRole(a *domain.Account) string {
	for _, r := range a.Roles {
		if r == domain.RoleAdmin {
			return domain.RoleAdmin
		}
	}
	return domain.RoleUser
}
