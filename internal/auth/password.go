// Package auth はパスワード検証、セッショントークン、CSRFトークンを提供する。
package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// bcryptCost はパスワードハッシュの計算コスト。
// 意図的に高コストにしてブルートフォースを遅くする。
const bcryptCost = 10

// HashPassword は平文パスワードからbcryptハッシュを生成する。
// ソルトはbcryptが内部で自動生成する。
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword は平文パスワードと保存ハッシュの一致を検証する。
// bcrypt.CompareHashAndPasswordはタイミング攻撃に対して安全。
func VerifyPassword(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
