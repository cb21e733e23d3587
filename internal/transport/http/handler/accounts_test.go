package handler

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-blog-api/internal/config"
	"github.com/go-blog-api/internal/domain"
	jwtinfra "github.com/go-blog-api/internal/infrastructure/jwt"
	appmiddleware "github.com/go-blog-api/internal/transport/http/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAccountService struct{ mock.Mock }

func (m *mockAccountService) Create(ctx context.Context, req domain.CreateAccountRequest) (*domain.Account, error) {
	args := m.Called(ctx, req)
	if a := args.Get(0); a != nil {
		return a.(*domain.Account), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAccountService) IssueVerificationCode(ctx context.Context, email string) (string, error) {
	args := m.Called(ctx, email)
	return args.String(0), args.Error(1)
}

func (m *mockAccountService) IssueRegisterToken(ctx context.Context, email, code string) (string, error) {
	args := m.Called(ctx, email, code)
	return args.String(0), args.Error(1)
}

func (m *mockAccountService) IssueResetToken(ctx context.Context, email string) (string, error) {
	args := m.Called(ctx, email)
	return args.String(0), args.Error(1)
}

func (m *mockAccountService) ResetPassword(ctx context.Context, req domain.ResetPasswordRequest) error {
	return m.Called(ctx, req).Error(0)
}

func (m *mockAccountService) Get(ctx context.Context, accountID string) (*domain.Account, error) {
	args := m.Called(ctx, accountID)
	if a := args.Get(0); a != nil {
		return a.(*domain.Account), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAccountService) Modify(ctx context.Context, accountID string, req domain.ModifyAccountRequest) (*domain.Account, error) {
	args := m.Called(ctx, accountID, req)
	if a := args.Get(0); a != nil {
		return a.(*domain.Account), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAccountService) SetProfileImage(ctx context.Context, accountID string, attachmentID *string) (*domain.Account, error) {
	args := m.Called(ctx, accountID, attachmentID)
	if a := args.Get(0); a != nil {
		return a.(*domain.Account), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockAccountService) Delete(ctx context.Context, accountID string) error {
	return m.Called(ctx, accountID).Error(0)
}

type mockMailer struct{ mock.Mock }

func (m *mockMailer) SendEmail(to, subject, body string) error {
	return m.Called(to, subject, body).Error(0)
}

func newTestJWTProvider(t *testing.T) *jwtinfra.Provider {
	t.Helper()
	privKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	dir := t.TempDir()
	privPath := filepath.Join(dir, "private.pem")
	pubPath := filepath.Join(dir, "public.pem")

	privPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(privKey)})
	require.NoError(t, os.WriteFile(privPath, privPEM, 0600))

	pubBytes, err := x509.MarshalPKIXPublicKey(&privKey.PublicKey)
	require.NoError(t, err)
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubBytes})
	require.NoError(t, os.WriteFile(pubPath, pubPEM, 0600))

	cfg := &config.Config{
		JWTPrivateKeyPath: privPath,
		JWTPublicKeyPath:  pubPath,
		AccessTokenExpiry: 30 * time.Minute,
	}
	p, err := jwtinfra.NewProvider(cfg)
	require.NoError(t, err)
	return p
}

// accountTestRouter mounts the handler behind the same middleware the real
// router uses, so the authorization checks in the handlers are exercised
// with real signed tokens.
func accountTestRouter(h *AccountHandler, p *jwtinfra.Provider) http.Handler {
	r := chi.NewRouter()
	r.Post("/accounts", h.Create)
	r.Post("/accounts/verify-code", h.IssueVerificationCode)
	r.Post("/accounts/register-token", h.IssueRegisterToken)
	r.Post("/accounts/reset-password-token", h.IssueResetToken)
	r.Post("/accounts/reset-password", h.ResetPassword)
	r.Group(func(r chi.Router) {
		r.Use(appmiddleware.Auth(p))
		r.Get("/accounts/me", h.GetCurrent)
		r.Put("/accounts/{id}", h.Modify)
		r.Post("/accounts/{id}/profile-image", h.SetProfileImage)
		r.Delete("/accounts/{id}", h.Delete)
	})
	return r
}

func jsonBody(t *testing.T, v interface{}) *bytes.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

func TestAccountHandler_Create(t *testing.T) {
	svc := new(mockAccountService)
	h := NewAccountHandler(svc, new(mockMailer), "https://blog.example.com")

	req := domain.CreateAccountRequest{
		Email:           "alice@example.com",
		Name:            "Alice",
		BlogID:          "alice-blog",
		Password:        "correct horse",
		EmailVerifyCode: "123456",
	}
	svc.On("Create", mock.Anything, req).
		Return(&domain.Account{AccountID: "a1", Email: req.Email, BlogID: req.BlogID}, nil)

	rr := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/accounts", jsonBody(t, req))
	accountTestRouter(h, newTestJWTProvider(t)).ServeHTTP(rr, r)

	assert.Equal(t, http.StatusCreated, rr.Code)
	var got domain.Account
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "a1", got.AccountID)
	svc.AssertExpectations(t)
}

func TestAccountHandler_Create_Conflict(t *testing.T) {
	svc := new(mockAccountService)
	h := NewAccountHandler(svc, new(mockMailer), "https://blog.example.com")

	svc.On("Create", mock.Anything, mock.Anything).
		Return(nil, fmt.Errorf("email already registered: %w", domain.ErrConflict))

	body := jsonBody(t, domain.CreateAccountRequest{
		Email:    "alice@example.com",
		Name:     "Alice",
		BlogID:   "alice-blog",
		Password: "correct horse",
	})
	rr := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/accounts", body)
	accountTestRouter(h, newTestJWTProvider(t)).ServeHTTP(rr, r)

	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestAccountHandler_Create_InvalidBody(t *testing.T) {
	svc := new(mockAccountService)
	h := NewAccountHandler(svc, new(mockMailer), "https://blog.example.com")

	rr := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/accounts", strings.NewReader(`{"email": "not-an-email"}`))
	accountTestRouter(h, newTestJWTProvider(t)).ServeHTTP(rr, r)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	svc.AssertNotCalled(t, "Create")
}

func TestAccountHandler_IssueVerificationCode_SendsMail(t *testing.T) {
	svc := new(mockAccountService)
	mailer := new(mockMailer)
	h := NewAccountHandler(svc, mailer, "https://blog.example.com")

	svc.On("IssueVerificationCode", mock.Anything, "alice@example.com").Return("482913", nil)
	mailer.On("SendEmail", "alice@example.com", mock.Anything, mock.MatchedBy(func(body string) bool {
		return strings.Contains(body, "482913")
	})).Return(nil)

	rr := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/accounts/verify-code",
		strings.NewReader(`{"email": "alice@example.com"}`))
	accountTestRouter(h, newTestJWTProvider(t)).ServeHTTP(rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	mailer.AssertExpectations(t)
}

func TestAccountHandler_IssueVerificationCode_AlreadyIssued(t *testing.T) {
	svc := new(mockAccountService)
	mailer := new(mockMailer)
	h := NewAccountHandler(svc, mailer, "https://blog.example.com")

	svc.On("IssueVerificationCode", mock.Anything, "alice@example.com").
		Return("", fmt.Errorf("a verification code was already issued: %w", domain.ErrConflict))

	rr := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/accounts/verify-code",
		strings.NewReader(`{"email": "alice@example.com"}`))
	accountTestRouter(h, newTestJWTProvider(t)).ServeHTTP(rr, r)

	assert.Equal(t, http.StatusConflict, rr.Code)
	mailer.AssertNotCalled(t, "SendEmail")
}

func TestAccountHandler_IssueRegisterToken(t *testing.T) {
	svc := new(mockAccountService)
	h := NewAccountHandler(svc, new(mockMailer), "https://blog.example.com")

	svc.On("IssueRegisterToken", mock.Anything, "alice@example.com", "482913").
		Return("signed-token", nil)

	rr := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/accounts/register-token",
		strings.NewReader(`{"email": "alice@example.com", "email_verify_code": "482913"}`))
	accountTestRouter(h, newTestJWTProvider(t)).ServeHTTP(rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	var got map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "signed-token", got["register_token"])
}

func TestAccountHandler_IssueRegisterToken_WrongCode(t *testing.T) {
	svc := new(mockAccountService)
	h := NewAccountHandler(svc, new(mockMailer), "https://blog.example.com")

	svc.On("IssueRegisterToken", mock.Anything, "alice@example.com", "000000").
		Return("", fmt.Errorf("invalid verification code: %w", domain.ErrBadRequest))

	rr := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/accounts/register-token",
		strings.NewReader(`{"email": "alice@example.com", "email_verify_code": "000000"}`))
	accountTestRouter(h, newTestJWTProvider(t)).ServeHTTP(rr, r)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAccountHandler_IssueResetToken_MailsResetURL(t *testing.T) {
	svc := new(mockAccountService)
	mailer := new(mockMailer)
	h := NewAccountHandler(svc, mailer, "https://blog.example.com")

	svc.On("IssueResetToken", mock.Anything, "alice@example.com").Return("reset-tok", nil)
	mailer.On("SendEmail", "alice@example.com", mock.Anything, mock.MatchedBy(func(body string) bool {
		return strings.Contains(body, "https://blog.example.com/reset-password?token=reset-tok")
	})).Return(nil)

	rr := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/accounts/reset-password-token",
		strings.NewReader(`{"email": "alice@example.com"}`))
	accountTestRouter(h, newTestJWTProvider(t)).ServeHTTP(rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	mailer.AssertExpectations(t)
}

func TestAccountHandler_IssueResetToken_UnknownEmail(t *testing.T) {
	svc := new(mockAccountService)
	mailer := new(mockMailer)
	h := NewAccountHandler(svc, mailer, "https://blog.example.com")

	svc.On("IssueResetToken", mock.Anything, "nobody@example.com").
		Return("", fmt.Errorf("account not found: %w", domain.ErrNotFound))

	rr := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/accounts/reset-password-token",
		strings.NewReader(`{"email": "nobody@example.com"}`))
	accountTestRouter(h, newTestJWTProvider(t)).ServeHTTP(rr, r)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	mailer.AssertNotCalled(t, "SendEmail")
}

func TestAccountHandler_ResetPassword(t *testing.T) {
	svc := new(mockAccountService)
	h := NewAccountHandler(svc, new(mockMailer), "https://blog.example.com")

	req := domain.ResetPasswordRequest{ResetPasswordToken: "reset-tok", NewPassword: "new password"}
	svc.On("ResetPassword", mock.Anything, req).Return(nil)

	rr := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/accounts/reset-password", jsonBody(t, req))
	accountTestRouter(h, newTestJWTProvider(t)).ServeHTTP(rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	svc.AssertExpectations(t)
}

func TestAccountHandler_ResetPassword_BadToken(t *testing.T) {
	svc := new(mockAccountService)
	h := NewAccountHandler(svc, new(mockMailer), "https://blog.example.com")

	svc.On("ResetPassword", mock.Anything, mock.Anything).
		Return(fmt.Errorf("invalid reset token: %w", domain.ErrBadRequest))

	body := jsonBody(t, domain.ResetPasswordRequest{ResetPasswordToken: "forged", NewPassword: "new password"})
	rr := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/accounts/reset-password", body)
	accountTestRouter(h, newTestJWTProvider(t)).ServeHTTP(rr, r)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAccountHandler_GetCurrent(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := new(mockAccountService)
	h := NewAccountHandler(svc, new(mockMailer), "https://blog.example.com")

	svc.On("Get", mock.Anything, "a1").
		Return(&domain.Account{AccountID: "a1", Email: "alice@example.com"}, nil)

	token, err := p.Sign("a1", "alice-blog", domain.RoleUser, "sess1")
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/accounts/me", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	accountTestRouter(h, p).ServeHTTP(rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	var got domain.Account
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "a1", got.AccountID)
}

func TestAccountHandler_GetCurrent_NoToken(t *testing.T) {
	svc := new(mockAccountService)
	h := NewAccountHandler(svc, new(mockMailer), "https://blog.example.com")

	rr := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/accounts/me", nil)
	accountTestRouter(h, newTestJWTProvider(t)).ServeHTTP(rr, r)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	svc.AssertNotCalled(t, "Get")
}

func TestAccountHandler_Modify_OtherAccountForbidden(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := new(mockAccountService)
	h := NewAccountHandler(svc, new(mockMailer), "https://blog.example.com")

	token, err := p.Sign("a1", "alice-blog", domain.RoleUser, "sess1")
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPut, "/accounts/a2", strings.NewReader(`{"name": "Mallory"}`))
	r.Header.Set("Authorization", "Bearer "+token)
	accountTestRouter(h, p).ServeHTTP(rr, r)

	assert.Equal(t, http.StatusForbidden, rr.Code)
	svc.AssertNotCalled(t, "Modify")
}

func TestAccountHandler_Modify_AdminCanModifyOthers(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := new(mockAccountService)
	h := NewAccountHandler(svc, new(mockMailer), "https://blog.example.com")

	svc.On("Modify", mock.Anything, "a2", mock.Anything).
		Return(&domain.Account{AccountID: "a2", Name: "Renamed"}, nil)

	token, err := p.Sign("admin1", "admin-blog", domain.RoleAdmin, "sess1")
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPut, "/accounts/a2", strings.NewReader(`{"name": "Renamed"}`))
	r.Header.Set("Authorization", "Bearer "+token)
	accountTestRouter(h, p).ServeHTTP(rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	svc.AssertExpectations(t)
}

func TestAccountHandler_SetProfileImage_SelfOnly(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := new(mockAccountService)
	h := NewAccountHandler(svc, new(mockMailer), "https://blog.example.com")

	token, err := p.Sign("admin1", "admin-blog", domain.RoleAdmin, "sess1")
	require.NoError(t, err)

	// Even admins cannot change someone else's profile image.
	rr := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/accounts/a2/profile-image",
		strings.NewReader(`{"file_id": "f1"}`))
	r.Header.Set("Authorization", "Bearer "+token)
	accountTestRouter(h, p).ServeHTTP(rr, r)

	assert.Equal(t, http.StatusForbidden, rr.Code)
	svc.AssertNotCalled(t, "SetProfileImage")
}

func TestAccountHandler_Delete_Self(t *testing.T) {
	p := newTestJWTProvider(t)
	svc := new(mockAccountService)
	h := NewAccountHandler(svc, new(mockMailer), "https://blog.example.com")

	svc.On("Delete", mock.Anything, "a1").Return(nil)

	token, err := p.Sign("a1", "alice-blog", domain.RoleUser, "sess1")
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodDelete, "/accounts/a1", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	accountTestRouter(h, p).ServeHTTP(rr, r)

	assert.Equal(t, http.StatusOK, rr.Code)
	svc.AssertExpectations(t)
}
