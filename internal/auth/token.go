// Package auth 签发与校验访问/刷新令牌，以及密码哈希
package auth

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/d60-Lab/eazyeats/internal/model"
)

const bcryptCost = 10

var ErrInvalidToken = errors.New("invalid or expired token")

// Principal 已认证的调用方
type Principal struct {
	UserID string
	Role   model.Role
	Name   string
}

// HasRole 是否持有任一角色
func (p Principal) HasRole(roles ...model.Role) bool {
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}

// IsStaff 员工或管理员
func (p Principal) IsStaff() bool { return p.HasRole(model.RoleStaff, model.RoleAdmin) }

type Claims struct {
	Role model.Role `json:"role"`
	Name string     `json:"name"`
	jwt.RegisteredClaims
}

// Tokens HS256 令牌签发器，访问令牌与刷新令牌使用不同密钥
type Tokens struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewTokens(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *Tokens {
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}
	return &Tokens{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

func (t *Tokens) RefreshTTL() time.Duration { return t.refreshTTL }

func (t *Tokens) sign(u *model.User, secret []byte, ttl time.Duration) (string, error) {
	now := t.now()
	claims := Claims{
		Role: u.Role,
		Name: u.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func (t *Tokens) SignAccess(u *model.User) (string, error) {
	return t.sign(u, t.accessSecret, t.accessTTL)
}

func (t *Tokens) SignRefresh(u *model.User) (string, error) {
	return t.sign(u, t.refreshSecret, t.refreshTTL)
}

func (t *Tokens) verify(raw string, secret []byte) (Principal, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(t.now))
	if err != nil || claims.Subject == "" {
		return Principal{}, ErrInvalidToken
	}
	return Principal{UserID: claims.Subject, Role: claims.Role, Name: claims.Name}, nil
}

func (t *Tokens) VerifyAccess(raw string) (Principal, error) {
	return t.verify(raw, t.accessSecret)
}

func (t *Tokens) VerifyRefresh(raw string) (Principal, error) {
	return t.verify(raw, t.refreshSecret)
}

// HashPassword bcrypt 哈希
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", errors.Wrap(err, "hash password")
	}
	return string(b), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
