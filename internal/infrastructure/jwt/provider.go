package jwtinfra

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-blog-api/internal/config"
	"github.com/golang-jwt/jwt/v5"
)

// Purposes for single-use flow tokens. The purpose claim binds a token to
// exactly one flow, so a register token can never pass as a reset token.
const (
	PurposeRegister      = "register"
	PurposeResetPassword = "reset-password"
)

// Claims holds the access-token payload fields.
type Claims struct {
	AccountID string `json:"account_id"`
	BlogID    string `json:"blog_id"`
	Role      string `json:"role"`
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

// purposeClaims is the payload of register / reset-password flow tokens.
// Subject carries the account email.
type purposeClaims struct {
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// Provider signs and verifies RS256 JWTs.
type Provider struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	expiry     time.Duration
}

func NewProvider(cfg *config.Config) (*Provider, error) {
	privBytes, err := os.ReadFile(cfg.JWTPrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	privKey, err := jwt.ParseRSAPrivateKeyFromPEM(privBytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	pubBytes, err := os.ReadFile(cfg.JWTPublicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read public key: %w", err)
	}
	pubKey, err := jwt.ParseRSAPublicKeyFromPEM(pubBytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}

	return &Provider{privateKey: privKey, publicKey: pubKey, expiry: cfg.AccessTokenExpiry}, nil
}

// Sign issues an access token for an authenticated account.
func (p *Provider) Sign(accountID, blogID, role, sessionID string) (string, error) {
	claims := Claims{
		AccountID: accountID,
		BlogID:    blogID,
		Role:      role,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(p.expiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(p.privateKey)
}

// Verify validates an access token and returns its claims.
func (p *Provider) Verify(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, p.keyFunc)
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

// SignPurpose issues a flow token binding subject (email) and purpose with
// the given expiry.
func (p *Provider) SignPurpose(subject, purpose string, ttl time.Duration) (string, error) {
	claims := purposeClaims{
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(p.privateKey)
}

// VerifyPurpose validates a flow token and returns its subject email.
// Bad signature, expiry, and purpose mismatch all yield the same error
// with no subject, so callers cannot distinguish the failure modes.
func (p *Provider) VerifyPurpose(tokenStr, purpose string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &purposeClaims{}, p.keyFunc)
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(*purposeClaims)
	if !ok || !token.Valid || claims.Purpose != purpose || claims.Subject == "" {
		return "", errors.New("invalid token claims")
	}
	return claims.Subject, nil
}

func (p *Provider) keyFunc(t *jwt.Token) (interface{}, error) {
	if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
		return nil, errors.New("unexpected signing method")
	}
	return p.publicKey, nil
}
