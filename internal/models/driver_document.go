package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DriverDocumentStatus string

const (
	DocumentStatusPending  DriverDocumentStatus = "pending"  // На модерации
	DocumentStatusApproved DriverDocumentStatus = "approved" // Принят
	DocumentStatusRejected DriverDocumentStatus = "rejected" // Отказ
	DocumentStatusRevision DriverDocumentStatus = "revision" // Доработка
)

// DriverDocument — документ водителя, проходящий модерацию.
// Водитель может получать заказы только при наличии принятых документов.
type DriverDocument struct {
	ID              string               `json:"id" gorm:"type:uuid;primaryKey"`
	UserID          string               `json:"user_id" gorm:"type:uuid;not null;index"`
	DocumentType    string               `json:"document_type" gorm:"not null"`
	DocumentName    string               `json:"document_name" gorm:"not null"`
	DocumentUrl     string               `json:"document_url" gorm:"not null"`
	Status          DriverDocumentStatus `json:"status" gorm:"type:varchar(20);default:'pending'"`
	RejectionReason string               `json:"rejection_reason,omitempty" gorm:"default:''"`
	UploadedAt      time.Time            `json:"uploaded_at" gorm:"autoCreateTime"`
	VerifiedAt      *time.Time           `json:"verified_at,omitempty"`
	VerifiedBy      *string              `json:"verified_by,omitempty" gorm:"type:uuid"`
	User            *Profile             `json:"-" gorm:"foreignKey:UserID"`
}

func (d *DriverDocument) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}
