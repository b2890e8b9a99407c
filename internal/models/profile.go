package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProfileStatus string

const (
	ProfileStatusActive   ProfileStatus = "active"
	ProfileStatusInactive ProfileStatus = "inactive"
)

type AppRole string

const (
	RoleAdmin  AppRole = "admin"
	RoleDriver AppRole = "driver"
)

// Profile — учетная запись пользователя (водитель или администратор)
type Profile struct {
	ID           string        `json:"id" gorm:"type:uuid;primaryKey"`
	FullName     string        `json:"full_name" gorm:"not null"`
	Email        string        `json:"email" gorm:"unique;not null"`
	PasswordHash string        `json:"-" gorm:"not null"`
	FCMToken     string        `json:"fcm_token,omitempty" gorm:"column:fcm_token;type:text;default:''"`
	AvatarUrl    string        `json:"avatar_url,omitempty" gorm:"default:''"`
	Status       ProfileStatus `json:"status" gorm:"type:varchar(20);default:'active'"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

func (p *Profile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// ProfileResponse — ответ API без чувствительных полей
type ProfileResponse struct {
	ID        string        `json:"id"`
	FullName  string        `json:"full_name"`
	Email     string        `json:"email"`
	FCMToken  string        `json:"fcm_token,omitempty"`
	AvatarUrl string        `json:"avatar_url,omitempty"`
	Status    ProfileStatus `json:"status"`
	Roles     []AppRole     `json:"roles,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

// UserRole связывает пользователя с ролью приложения
type UserRole struct {
	ID     string  `json:"id" gorm:"type:uuid;primaryKey"`
	UserID string  `json:"user_id" gorm:"type:uuid;not null;index"`
	Role   AppRole `json:"role" gorm:"type:varchar(20);not null"`
}

func (r *UserRole) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
