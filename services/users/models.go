package users

import "time"

type User struct {
	ID             string    `json:"id" gorm:"primaryKey;size:36"`
	Email          string    `json:"email" gorm:"uniqueIndex;size:255;not null"`
	FullName       string    `json:"full_name" gorm:"size:255"`
	HashedPassword string    `json:"-" gorm:"size:255;not null"`
	IsActive       bool      `json:"is_active" gorm:"not null;default:true"`
	IsSuperuser    bool      `json:"is_superuser" gorm:"not null;default:false"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
