package refreshtoken

import (
	"time"
)

type RefreshToken struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	UserID    string    `json:"user_id" gorm:"not null;index;size:36"`
	TokenHash string    `json:"-" gorm:"uniqueIndex;size:64;not null"`
	ExpiresAt time.Time `json:"expires_at" gorm:"not null;index"`
	CreatedAt time.Time `json:"created_at"`
	Revoked   bool      `json:"revoked" gorm:"not null;default:false"`
}

func (RefreshToken) TableName() string {
	return "refresh_tokens"
}
