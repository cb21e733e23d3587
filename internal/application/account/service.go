package account

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-blog-api/internal/domain"
	jwtinfra "github.com/go-blog-api/internal/infrastructure/jwt"
	"github.com/go-blog-api/internal/pkg/id"
	"github.com/go-blog-api/internal/pkg/verifycode"
	"golang.org/x/crypto/bcrypt"
)

// DynamoDB attribute names used in partial update maps.
const (
	fieldName           = "name"
	fieldBiography      = "biography"
	fieldCompany        = "company"
	fieldLocation       = "location"
	fieldHomepage       = "homepage"
	fieldProfileImageID = "profile_image_id"
	fieldPasswordHash   = "password_hash"
)

// Namespaced credential store keys. The prefix keeps verification codes and
// reset tokens for the same email from colliding in the shared store.
const (
	verifyCodeKeyPrefix = "email-verify-code: "
	resetTokenKeyPrefix = "password-reset-token: "
)

const (
	verifyCodeTTL    = 3 * time.Minute
	resetTokenTTL    = 3 * time.Minute
	registerTokenTTL = 24 * time.Hour
)

type Service interface {
	Create(ctx context.Context, req domain.CreateAccountRequest) (*domain.Account, error)
	IssueVerificationCode(ctx context.Context, email string) (string, error)
	IssueRegisterToken(ctx context.Context, email, code string) (string, error)
	IssueResetToken(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, req domain.ResetPasswordRequest) error
	Get(ctx context.Context, accountID string) (*domain.Account, error)
	Modify(ctx context.Context, accountID string, req domain.ModifyAccountRequest) (*domain.Account, error)
	SetProfileImage(ctx context.Context, accountID string, attachmentID *string) (*domain.Account, error)
	Delete(ctx context.Context, accountID string) error
}

type accountStore interface {
	Create(ctx context.Context, a *domain.Account) error
	Get(ctx context.Context, accountID string) (*domain.Account, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByBlogID(ctx context.Context, blogID string) (bool, error)
	FindByEmailNotDeleted(ctx context.Context, email string) (*domain.Account, error)
	Update(ctx context.Context, accountID string, updates map[string]interface{}) error
	SoftDelete(ctx context.Context, accountID string) error
}

type roleStore interface {
	SaveIfNotExists(ctx context.Context, name string) error
}

type credentialStore interface {
	SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	GetAndDelete(ctx context.Context, key string) (string, error)
}

type tokenSigner interface {
	SignPurpose(subject, purpose string, ttl time.Duration) (string, error)
	VerifyPurpose(tokenStr, purpose string) (string, error)
}

type service struct {
	repo  accountStore
	roles roleStore
	creds credentialStore
	token tokenSigner
}

type ServiceDeps struct {
	AccountRepo accountStore
	RoleRepo    roleStore
	CredStore   credentialStore
	TokenSigner tokenSigner
}

func NewService(deps ServiceDeps) Service {
	return &service{
		repo:  deps.AccountRepo,
		roles: deps.RoleRepo,
		creds: deps.CredStore,
		token: deps.TokenSigner,
	}
}

// Create registers a new account. The caller proves control of the email
// address either with a verification code previously issued to that address
// or with a signed register token whose subject matches the address.
func (s *service) Create(ctx context.Context, req domain.CreateAccountRequest) (*domain.Account, error) {
	// Signature failure and subject mismatch collapse into one error so the
	// response does not reveal which check failed.
	if req.RegisterToken != "" {
		subject, err := s.token.VerifyPurpose(req.RegisterToken, jwtinfra.PurposeRegister)
		if err != nil || subject != req.Email {
			return nil, fmt.Errorf("invalid register token: %w", domain.ErrBadRequest)
		}
	}

	taken, err := s.repo.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("email already registered: %w", domain.ErrConflict)
	}
	taken, err = s.repo.ExistsByBlogID(ctx, req.BlogID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("blog id already taken: %w", domain.ErrConflict)
	}

	verifyKey := verifyCodeKeyPrefix + req.Email
	if req.RegisterToken == "" {
		// A plain read keeps a mistyped code from destroying the live one;
		// the code is only consumed once the account has been persisted.
		code, err := s.creds.Get(ctx, verifyKey)
		if err != nil {
			return nil, err
		}
		if code == "" || req.EmailVerifyCode == "" || code != req.EmailVerifyCode {
			return nil, fmt.Errorf("invalid email verification code: %w", domain.ErrBadRequest)
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	a := &domain.Account{
		AccountID:    id.New(),
		Email:        req.Email,
		Name:         req.Name,
		BlogID:       req.BlogID,
		PasswordHash: string(hash),
		Roles:        []string{domain.RoleUser},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}
	if err := s.roles.SaveIfNotExists(ctx, domain.RoleUser); err != nil {
		slog.Warn("could not persist role", "role", domain.RoleUser, "err", err)
	}
	if req.RegisterToken == "" {
		if _, err := s.creds.GetAndDelete(ctx, verifyKey); err != nil {
			slog.Warn("could not consume verification code", "email", req.Email, "err", err)
		}
	}
	return a, nil
}

// IssueVerificationCode draws a fresh six-digit code for the address and
// stores it for verifyCodeTTL. While a previous code is still live, issuance
// is refused rather than replaced.
func (s *service) IssueVerificationCode(ctx context.Context, email string) (string, error) {
	taken, err := s.repo.ExistsByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if taken {
		return "", fmt.Errorf("email already registered: %w", domain.ErrConflict)
	}
	code, err := verifycode.New()
	if err != nil {
		return "", err
	}
	ok, err := s.creds.SetIfAbsent(ctx, verifyCodeKeyPrefix+email, code, verifyCodeTTL)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("a verification code was already issued: %w", domain.ErrConflict)
	}
	return code, nil
}

// IssueRegisterToken exchanges a live verification code for a signed register
// token, letting the caller finish signup up to a day later. The code is
// consumed on success.
func (s *service) IssueRegisterToken(ctx context.Context, email, code string) (string, error) {
	stored, err := s.creds.Get(ctx, verifyCodeKeyPrefix+email)
	if err != nil {
		return "", err
	}
	if stored == "" || code == "" || stored != code {
		return "", fmt.Errorf("invalid email verification code: %w", domain.ErrBadRequest)
	}
	token, err := s.token.SignPurpose(email, jwtinfra.PurposeRegister, registerTokenTTL)
	if err != nil {
		return "", err
	}
	if _, err := s.creds.GetAndDelete(ctx, verifyCodeKeyPrefix+email); err != nil {
		slog.Warn("could not consume verification code", "email", email, "err", err)
	}
	return token, nil
}

// IssueResetToken signs a password reset token for a registered address and
// stores it for resetTokenTTL. While a previous token is still live, issuance
// is refused rather than replaced.
func (s *service) IssueResetToken(ctx context.Context, email string) (string, error) {
	registered, err := s.repo.ExistsByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if !registered {
		return "", fmt.Errorf("email not registered: %w", domain.ErrNotFound)
	}
	token, err := s.token.SignPurpose(email, jwtinfra.PurposeResetPassword, resetTokenTTL)
	if err != nil {
		return "", err
	}
	ok, err := s.creds.SetIfAbsent(ctx, resetTokenKeyPrefix+email, token, resetTokenTTL)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("a reset token was already issued: %w", domain.ErrConflict)
	}
	return token, nil
}

// ResetPassword consumes a live reset token and sets the new password.
// The token is removed before the password is written, so a second attempt
// with the same token fails the same way an expired one does.
func (s *service) ResetPassword(ctx context.Context, req domain.ResetPasswordRequest) error {
	email, err := s.token.VerifyPurpose(req.ResetPasswordToken, jwtinfra.PurposeResetPassword)
	if err != nil {
		return fmt.Errorf("invalid reset password token: %w", domain.ErrBadRequest)
	}
	stored, err := s.creds.GetAndDelete(ctx, resetTokenKeyPrefix+email)
	if err != nil {
		return err
	}
	if stored == "" || stored != req.ResetPasswordToken {
		return fmt.Errorf("invalid reset password token: %w", domain.ErrBadRequest)
	}
	// The repo wraps a missing account in ErrNotFound already; anything else
	// is a store failure and must not masquerade as a 404.
	a, err := s.repo.FindByEmailNotDeleted(ctx, email)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.repo.Update(ctx, a.AccountID, map[string]interface{}{fieldPasswordHash: string(hash)})
}

func (s *service) Get(ctx context.Context, accountID string) (*domain.Account, error) {
	return s.repo.Get(ctx, accountID)
}

func (s *service) Modify(ctx context.Context, accountID string, req domain.ModifyAccountRequest) (*domain.Account, error) {
	updates := map[string]interface{}{}
	if req.Name != nil {
		updates[fieldName] = *req.Name
	}
	if req.Biography != nil {
		updates[fieldBiography] = *req.Biography
	}
	if req.Company != nil {
		updates[fieldCompany] = *req.Company
	}
	if req.Location != nil {
		updates[fieldLocation] = *req.Location
	}
	if req.Homepage != nil {
		updates[fieldHomepage] = *req.Homepage
	}
	if len(updates) == 0 {
		return s.repo.Get(ctx, accountID)
	}
	if err := s.repo.Update(ctx, accountID, updates); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, accountID)
}

func (s *service) SetProfileImage(ctx context.Context, accountID string, attachmentID *string) (*domain.Account, error) {
	var v interface{}
	if attachmentID != nil {
		v = *attachmentID
	}
	if err := s.repo.Update(ctx, accountID, map[string]interface{}{fieldProfileImageID: v}); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, accountID)
}

func (s *service) Delete(ctx context.Context, accountID string) error {
	return s.repo.SoftDelete(ctx, accountID)
}
