package service

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TypAccess  = "access"
	TypRefresh = "refresh"
)

type AccessClaims struct {
	Role string `json:"role"`
	Typ  string `json:"typ"`
	jwt.RegisteredClaims
}

type RefreshClaims struct {
	Role string `json:"role"`
	Typ  string `json:"typ"`
	jwt.RegisteredClaims
}

func SignAccessToken(userID uint, role string, secret []byte, exp time.Time) (string, error) {
	claims := AccessClaims{
		Role: role,
		Typ:  TypAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(secret)
}

// SignRefreshToken mints a refresh JWT with a fresh JTI; the JTI is what the
// ledger tracks.
func SignRefreshToken(userID uint, role string, secret []byte, exp time.Time) (token, jti string, err error) {
	jti = uuid.NewString()
	claims := RefreshClaims{
		Role: role,
		Typ:  TypRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        jti,
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token, err = t.SignedString(secret)
	return token, jti, err
}

func parseHMAC(raw string, secret []byte, claims jwt.Claims) error {
	t, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return err
	}
	if !t.Valid {
		return fmt.Errorf("invalid token")
	}
	return nil
}

// AccessClaimsFromToken verifies the signature, expiry, and kind. A refresh
// token never passes here, and vice versa.
func AccessClaimsFromToken(raw string, secret []byte) (*AccessClaims, error) {
	var claims AccessClaims
	if err := parseHMAC(raw, secret, &claims); err != nil {
		return nil, err
	}
	if claims.Typ != TypAccess {
		return nil, fmt.Errorf("not an access token")
	}
	return &claims, nil
}

func RefreshClaimsFromToken(raw string, secret []byte) (*RefreshClaims, error) {
	var claims RefreshClaims
	if err := parseHMAC(raw, secret, &claims); err != nil {
		return nil, err
	}
	if claims.Typ != TypRefresh {
		return nil, fmt.Errorf("not a refresh token")
	}
	return &claims, nil
}

func (c *AccessClaims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 32)
	return uint(id), err
}

func (c *RefreshClaims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 32)
	return uint(id), err
}

func Sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
