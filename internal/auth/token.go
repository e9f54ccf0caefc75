package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// トークン検証エラー
var (
	// ErrTokenInvalid は署名不正・形式不正なトークンを表す。
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenExpired は有効期限切れのトークンを表す。
	ErrTokenExpired = errors.New("token expired")
)

// Claims はセッショントークンに埋め込むクレームを表す。
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenManager はHS256署名のセッショントークンの発行と検証を行う。
// シークレットはプロセス全体で読み取り専用の状態として起動時に1回設定する。
type TokenManager struct {
	secret []byte
	maxAge time.Duration

	// now はテストから時刻を注入するためのフック。
	now func() time.Time
}

// NewTokenManager はTokenManagerを生成する。
// シークレットが空の場合はエラーを返す（起動時に致命的エラーとして扱うこと）。
func NewTokenManager(secret []byte, maxAge time.Duration) (*TokenManager, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("token secret is required but was empty")
	}
	return &TokenManager{
		secret: secret,
		maxAge: maxAge,
		now:    time.Now,
	}, nil
}

// Issue はユーザーIDとユーザー名を結びつけたセッショントークンを発行する。
// 有効期限は発行時刻 + maxAge。
func (m *TokenManager) Issue(userID, username string) (string, error) {
	now := m.now()
	claims := &Claims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.maxAge)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}

// Verify はトークンの署名と有効期限を検証し、クレームを返す。
// 期限切れはErrTokenExpired、それ以外の不正はErrTokenInvalidを返す。
func (m *TokenManager) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		// 署名アルゴリズムをHS256に固定する（alg none / RS256すり替え対策）
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return m.now() }))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	if !token.Valid {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
