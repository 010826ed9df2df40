// Package auth issues and verifies the API's credentials: HS256 access
// and refresh tokens, bcrypt password hashes, and SMS reset codes.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/blackpearlke/blackpearl-api/internal/config"
	"github.com/blackpearlke/blackpearl-api/internal/models"
)

type Manager struct {
	cfg config.AuthConfig
	now func() time.Time
}

func NewManager(cfg config.AuthConfig) *Manager {
	return &Manager{cfg: cfg, now: time.Now}
}

// Claims carried by an access token.
type Claims struct {
	UserID int64
	Role   string
}

// GenerateAccessToken issues a short-lived bearer token carrying the
// user's id and role.
func (m *Manager) GenerateAccessToken(user *models.User) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":   user.ID,
		"role": user.Role,
		"exp":  m.now().Add(m.cfg.AccessTTL).Unix(),
		"iat":  m.now().Unix(),
	})
	return token.SignedString([]byte(m.cfg.JWTSecret))
}

// GenerateRefreshToken issues a long-lived token carrying only the user id.
func (m *Manager) GenerateRefreshToken(userID int64) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":  userID,
		"exp": m.now().Add(m.cfg.RefreshTTL).Unix(),
		"iat": m.now().Unix(),
	})
	return token.SignedString([]byte(m.cfg.RefreshSecret()))
}

func (m *Manager) ParseAccessToken(tokenString string) (*Claims, error) {
	claims, err := m.parse(tokenString, m.cfg.JWTSecret)
	if err != nil {
		return nil, err
	}
	id, ok := claims["id"].(float64)
	if !ok {
		return nil, fmt.Errorf("token missing user id")
	}
	role, _ := claims["role"].(string)
	return &Claims{UserID: int64(id), Role: role}, nil
}

func (m *Manager) ParseRefreshToken(tokenString string) (int64, error) {
	claims, err := m.parse(tokenString, m.cfg.RefreshSecret())
	if err != nil {
		return 0, err
	}
	id, ok := claims["id"].(float64)
	if !ok {
		return 0, fmt.Errorf("token missing user id")
	}
	return int64(id), nil
}

func (m *Manager) parse(tokenString, secret string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

const bcryptCost = 10

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// NormalizePhone converts Kenyan phone number inputs to the canonical
// 2547XXXXXXXX form: 0712345678 → 254712345678, +254712345678 →
// 254712345678.
func NormalizePhone(phone string) string {
	p := strings.ReplaceAll(phone, " ", "")
	switch {
	case strings.HasPrefix(p, "0"):
		return "254" + p[1:]
	case strings.HasPrefix(p, "+"):
		return p[1:]
	}
	return p
}

// GenerateResetCode returns a random 6-digit SMS code and its SHA-256 hex
// digest; only the digest is persisted.
func GenerateResetCode() (code, hash string, err error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", "", fmt.Errorf("failed to generate reset code: %w", err)
	}
	code = fmt.Sprintf("%06d", n.Int64()+100000)
	return code, HashResetCode(code), nil
}

func HashResetCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}
