package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

type User struct {
	BaseModel    `bson:",inline"`
	Name         string     `json:"name" bson:"name" gorm:"size:100;not null"`
	Email        string     `json:"email" bson:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash string     `json:"-" bson:"password_hash" gorm:"size:255;not null"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty" bson:"last_login_at,omitempty"`
}

func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

func (u *User) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
}
