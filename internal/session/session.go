// Package session mints and resolves opaque session tokens without any
// server-side session table.
//
// A token is an HS256 JWT carrying the username as its subject, sealed with
// AES-256-GCM and encoded as unpadded base64url. Signing and encryption keys
// are both derived from one configured secret with HKDF-SHA256, so rotating
// the secret invalidates every outstanding token.
package session

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gatekeep/authserver/config"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/hkdf"
)

const (
	issuer = "authserver"

	keyLen = 32

	// Cookies are capped at 4096 bytes by browsers; anything longer is not ours.
	maxTokenLen = 4096
)

var (
	signingKeyInfo    = []byte("authserver session signing v1")
	encryptionKeyInfo = []byte("authserver session encryption v1")
)

var (
	ErrSecretTooShort = fmt.Errorf("session secret must be at least %d bytes", config.MinSessionSecretLen)
	ErrEmptyIdentity  = errors.New("session identity cannot be empty")
	ErrTokenTooLong   = fmt.Errorf("session token would exceed %d bytes", maxTokenLen)
)

// Manager is immutable after construction and safe for concurrent use.
type Manager struct {
	signingKey []byte
	aead       cipher.AEAD
	maxAge     time.Duration
	now        func() time.Time
}

func NewManager(cfg config.SessionConfig) (*Manager, error) {
	secret := []byte(cfg.Secret)
	if len(secret) < config.MinSessionSecretLen {
		return nil, ErrSecretTooShort
	}

	signingKey, err := deriveKey(secret, signingKeyInfo)
	if err != nil {
		return nil, err
	}
	encryptionKey, err := deriveKey(secret, encryptionKeyInfo)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(encryptionKey)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return &Manager{
		signingKey: signingKey,
		aead:       aead,
		maxAge:     cfg.MaxAge,
		now:        time.Now,
	}, nil
}

// MaxAge is the configured token lifetime; zero means tokens never expire.
func (m *Manager) MaxAge() time.Duration {
	return m.maxAge
}

// Issue returns an opaque token for identity. It never returns a token that
// Resolve would refuse: an identity too long to fit yields ErrTokenTooLong.
func (m *Manager) Issue(identity string) (string, error) {
	if identity == "" {
		return "", ErrEmptyIdentity
	}

	now := m.now()
	claims := jwt.RegisteredClaims{
		Issuer:   issuer,
		Subject:  identity,
		IssuedAt: jwt.NewNumericDate(now),
	}
	if m.maxAge > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(m.maxAge))
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.signingKey)
	if err != nil {
		return "", fmt.Errorf("sign session claims: %w", err)
	}

	nonce := make([]byte, m.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := m.aead.Seal(nonce, nonce, []byte(signed), nil)
	token := base64.RawURLEncoding.EncodeToString(sealed)
	if len(token) > maxTokenLen {
		return "", ErrTokenTooLong
	}
	return token, nil
}

// Resolve returns the identity embedded in token. Any token that is empty,
// malformed, tampered with, signed under another secret or expired resolves
// to ("", false).
func (m *Manager) Resolve(token string) (string, bool) {
	token = strings.TrimSpace(token)
	if token == "" || len(token) > maxTokenLen {
		return "", false
	}

	sealed, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", false
	}

	nonceSize := m.aead.NonceSize()
	if len(sealed) < nonceSize+m.aead.Overhead() {
		return "", false
	}

	plaintext, err := m.aead.Open(nil, sealed[:nonceSize], sealed[nonceSize:], nil)
	if err != nil {
		return "", false
	}

	claims := jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(string(plaintext), &claims, func(*jwt.Token) (any, error) {
		return m.signingKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !parsed.Valid {
		return "", false
	}
	if claims.Subject == "" {
		return "", false
	}
	return claims.Subject, true
}

func deriveKey(secret, info []byte) ([]byte, error) {
	key := make([]byte, keyLen)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, info), key); err != nil {
		return nil, fmt.Errorf("derive session key: %w", err)
	}
	return key, nil
}
