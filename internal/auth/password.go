package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/recipebook/internal/model"
)

// Credentials はパスワードのハッシュ化と照合を行う。
// 平文パスワードは保持せず、bcryptハッシュのみをUser.PasswordHashに格納する。
type Credentials struct {
	cost int
}

// NewCredentials はCredentialsを生成する。
// costがbcryptの許容範囲より小さい場合はbcrypt.DefaultCostを使用する。
func NewCredentials(cost int) *Credentials {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	return &Credentials{cost: cost}
}

// SetPassword は平文パスワードをハッシュ化してuserに設定する。
// 72バイトを超えるパスワードなどハッシュ化に失敗した場合はエラーを返す。
func (c *Credentials) SetPassword(user *model.User, plaintext string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), c.cost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordHash = string(hash)
	return nil
}

// CheckPassword は平文パスワードがuserのハッシュと一致するかを返す。
// ハッシュが未設定または不正な形式の場合はfalseを返す。
func (c *Credentials) CheckPassword(user *model.User, plaintext string) bool {
	if user == nil || user.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(plaintext)) == nil
}
