// Package auth はユーザー登録・ログイン・JWT発行を提供する。
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/eventman/internal/model"
)

// ErrInvalidToken は無効または期限切れのトークンを示す。
var ErrInvalidToken = errors.New("invalid or expired token")

const (
	tokenIssuer   = "eventman"
	tokenAudience = "eventman-api"
)

// Claims はアクセストークンのクレームを表す。
// アクターの解決に必要なユーザーIDとロールを持つ。
type Claims struct {
	jwt.RegisteredClaims
	UserID string     `json:"user_id"`
	Role   model.Role `json:"role"`
}

// GenerateToken は指定ユーザーのHS256署名付きアクセストークンを生成する。
func GenerateToken(user *model.User, secret string, expiry time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Audience:  jwt.ClaimStrings{tokenAudience},
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		UserID: user.ID,
		Role:   user.Role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ValidateToken はトークン文字列を検証し、有効な場合はクレームを返す。
// 署名方式はHMACのみ許可する。
func ValidateToken(tokenString, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithAudience(tokenAudience))
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
