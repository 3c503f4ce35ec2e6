package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"gorm.io/gorm"

	"github.com/zyncjobs/backend/internal/hash"
	"github.com/zyncjobs/backend/internal/logging"
	mailer "github.com/zyncjobs/backend/internal/mail"
	"github.com/zyncjobs/backend/internal/models"
)

var (
	ErrResetInvalid = errors.New("invalid or expired token")
	ErrWeakPassword = errors.New("password must be at least 6 characters")
	ErrInvalidEmail = errors.New("valid email is required")
	ErrUserNotFound = errors.New("user not found")
)

// ResetService drives the one-time password-reset token lifecycle:
// no-token -> pending -> used | expired.
type ResetService struct {
	DB          *gorm.DB
	Mailer      mailer.Sender
	Tokens      *TokenService
	FrontendURL string
	TTL         time.Duration
}

func (s *ResetService) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return 15 * time.Minute
}

// Request issues a fresh one-time token for the email and mails the reset
// link. It never reveals whether the account exists: every outcome past
// format validation is reported as success to the caller.
func (s *ResetService) Request(ctx context.Context, email string) error {
	l := logging.FromContext(ctx).With("svc", "reset.request")

	if _, err := mail.ParseAddress(email); err != nil {
		return ErrInvalidEmail
	}

	var user models.User
	if err := s.DB.WithContext(ctx).Where("email = ? AND is_active = ?", email, true).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Info("reset requested for unknown email")
			return nil
		}
		return err
	}

	// at most one live token per email
	if err := s.DB.WithContext(ctx).Where("email = ?", email).Delete(&models.PasswordResetToken{}).Error; err != nil {
		return err
	}

	token, err := newResetToken()
	if err != nil {
		return err
	}

	record := models.PasswordResetToken{
		Email:     email,
		TokenHash: Sha256Hex(token),
		ExpiresAt: time.Now().Add(s.ttl()).Unix(),
	}
	if err := s.DB.WithContext(ctx).Create(&record).Error; err != nil {
		return err
	}

	resetLink := fmt.Sprintf("%s/reset-password/%s", s.FrontendURL, token)
	subject, body := mailer.ResetEmail(resetLink)
	if err := s.Mailer.Send(email, subject, body); err != nil {
		// delivery failure must not change the response
		l.Error("reset email delivery failed", "error", err)
	}

	return nil
}

// Verify checks a pending token and returns the email it was issued for.
func (s *ResetService) Verify(ctx context.Context, token string) (string, error) {
	record, err := s.pending(ctx, token)
	if err != nil {
		return "", err
	}
	return record.Email, nil
}

// Consume re-validates the token, applies the new password, and retires the
// token permanently. All outstanding refresh tokens of the user are revoked.
func (s *ResetService) Consume(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < 6 {
		return ErrWeakPassword
	}

	record, err := s.pending(ctx, token)
	if err != nil {
		return err
	}

	var user models.User
	if err := s.DB.WithContext(ctx).Where("email = ?", record.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	pwHash, err := hash.HashPassword(newPassword)
	if err != nil {
		return err
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.User{}).Where("id = ?", user.ID).
			Update("password_hash", pwHash).Error; err != nil {
			return err
		}
		return tx.Model(&models.PasswordResetToken{}).Where("id = ?", record.ID).
			Update("used", true).Error
	})
	if err != nil {
		return err
	}

	if err := s.Tokens.RevokeAll(ctx, user.ID); err != nil {
		logging.FromContext(ctx).Error("revoke sessions after reset failed", "error", err, "user_id", user.ID)
	}

	if err := s.DB.WithContext(ctx).Where("expires_at < ?", time.Now().Unix()).
		Delete(&models.PasswordResetToken{}).Error; err != nil {
		logging.FromContext(ctx).Warn("reset token prune failed", "error", err)
	}

	return nil
}

func (s *ResetService) pending(ctx context.Context, token string) (*models.PasswordResetToken, error) {
	if token == "" {
		return nil, ErrResetInvalid
	}
	var record models.PasswordResetToken
	err := s.DB.WithContext(ctx).
		Where("token_hash = ? AND used = ?", Sha256Hex(token), false).
		First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrResetInvalid
		}
		return nil, err
	}
	if record.ExpiresAt < time.Now().Unix() {
		return nil, ErrResetInvalid
	}
	return &record, nil
}

func newResetToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
