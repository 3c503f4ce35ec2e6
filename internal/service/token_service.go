package service

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/zyncjobs/backend/internal/logging"
	"github.com/zyncjobs/backend/internal/models"
)

var (
	ErrTokenInvalid = errors.New("invalid or expired token")
	ErrTokenReused  = errors.New("refresh token reuse detected")
)

type TokenPair struct {
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time
}

// TokenService owns the refresh-token ledger. Access tokens verify
// statelessly; refresh tokens pay the DB lookup so logout and rotation work.
type TokenService struct {
	DB            *gorm.DB
	JWTSecret     []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	// Degraded makes the ledger check permissive when the DB errors out.
	// Development convenience, off in production.
	Degraded bool
}

func (t *TokenService) accessTTL() time.Duration {
	if t.AccessTTL > 0 {
		return t.AccessTTL
	}
	return 15 * time.Minute
}

func (t *TokenService) refreshTTL() time.Duration {
	if t.RefreshTTL > 0 {
		return t.RefreshTTL
	}
	return 7 * 24 * time.Hour
}

// IssuePair signs a new access+refresh pair and records the refresh token in
// the ledger.
func (t *TokenService) IssuePair(ctx context.Context, userID uint, role string) (*TokenPair, error) {
	accessExp := time.Now().Add(t.accessTTL())
	access, err := SignAccessToken(userID, role, t.JWTSecret, accessExp)
	if err != nil {
		return nil, err
	}

	refreshExp := time.Now().Add(t.refreshTTL())
	refresh, jti, err := SignRefreshToken(userID, role, t.RefreshSecret, refreshExp)
	if err != nil {
		return nil, err
	}

	record := models.RefreshToken{
		TokenHash: Sha256Hex(refresh),
		JTI:       jti,
		UserID:    userID,
		ExpiresAt: refreshExp.Unix(),
	}
	if err := t.DB.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
	}, nil
}

// Rotate consumes a raw refresh token and returns a fresh pair. Presenting a
// revoked token revokes every active token for that user.
func (t *TokenService) Rotate(ctx context.Context, rawRefresh string) (*TokenPair, error) {
	claims, err := RefreshClaimsFromToken(rawRefresh, t.RefreshSecret)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, ErrTokenInvalid
	}

	var stored models.RefreshToken
	if err := t.DB.WithContext(ctx).Where("jti = ? AND user_id = ?", claims.ID, userID).First(&stored).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenInvalid
		}
		if t.Degraded {
			logging.FromContext(ctx).Warn("refresh ledger unavailable, degraded mode accepts token", "error", err)
			return t.issueWithoutLedgerRow(ctx, userID, claims.Role)
		}
		return nil, err
	}

	if stored.Revoked {
		if err := t.RevokeAll(ctx, userID); err != nil {
			logging.FromContext(ctx).Error("revoke-all after reuse failed", "error", err, "user_id", userID)
		}
		return nil, ErrTokenReused
	}
	if stored.ExpiresAt < time.Now().Unix() {
		return nil, ErrTokenInvalid
	}

	accessExp := time.Now().Add(t.accessTTL())
	access, err := SignAccessToken(userID, claims.Role, t.JWTSecret, accessExp)
	if err != nil {
		return nil, err
	}
	refreshExp := time.Now().Add(t.refreshTTL())
	refresh, jti, err := SignRefreshToken(userID, claims.Role, t.RefreshSecret, refreshExp)
	if err != nil {
		return nil, err
	}

	newRecord := models.RefreshToken{
		TokenHash: Sha256Hex(refresh),
		JTI:       jti,
		UserID:    userID,
		ExpiresAt: refreshExp.Unix(),
	}

	// revoke-old and store-new succeed or fail together
	err = t.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := revoke(tx, stored.JTI); err != nil {
			return err
		}
		return tx.Create(&newRecord).Error
	})
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
	}, nil
}

func (t *TokenService) issueWithoutLedgerRow(ctx context.Context, userID uint, role string) (*TokenPair, error) {
	accessExp := time.Now().Add(t.accessTTL())
	access, err := SignAccessToken(userID, role, t.JWTSecret, accessExp)
	if err != nil {
		return nil, err
	}
	refreshExp := time.Now().Add(t.refreshTTL())
	refresh, _, err := SignRefreshToken(userID, role, t.RefreshSecret, refreshExp)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh, AccessExp: accessExp, RefreshExp: refreshExp}, nil
}

func revoke(db *gorm.DB, jti string) error {
	now := time.Now()
	return db.Model(&models.RefreshToken{}).
		Where("jti = ? AND revoked = ?", jti, false).
		Updates(map[string]interface{}{"revoked": true, "revoked_at": &now}).Error
}

// Revoke marks one ledger row revoked. Revoking an already-revoked or
// unknown JTI is not an error.
func (t *TokenService) Revoke(ctx context.Context, jti string) error {
	return revoke(t.DB.WithContext(ctx), jti)
}

// RevokeAll revokes every active refresh token of a user (logout, password
// reset, reuse detection).
func (t *TokenService) RevokeAll(ctx context.Context, userID uint) error {
	now := time.Now()
	return t.DB.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("user_id = ? AND revoked = ?", userID, false).
		Updates(map[string]interface{}{"revoked": true, "revoked_at": &now}).Error
}

// IsActive reports whether a ledger row exists for jti+userID, unrevoked and
// unexpired.
func (t *TokenService) IsActive(ctx context.Context, jti string, userID uint) (bool, error) {
	var stored models.RefreshToken
	err := t.DB.WithContext(ctx).Where("jti = ? AND user_id = ?", jti, userID).First(&stored).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		if t.Degraded {
			return true, nil
		}
		return false, err
	}
	return !stored.Revoked && stored.ExpiresAt >= time.Now().Unix(), nil
}

// PruneExpired deletes ledger rows whose expiry has passed. Correctness never
// needs it; hygiene does.
func (t *TokenService) PruneExpired(ctx context.Context) error {
	return t.DB.WithContext(ctx).
		Where("expires_at < ?", time.Now().Unix()).
		Delete(&models.RefreshToken{}).Error
}
