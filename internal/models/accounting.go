package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TransactionType string

const (
	TransactionTypeRevenue    TransactionType = "revenue"    // Доход от поездки
	TransactionTypeExpense    TransactionType = "expense"    // Ручной расход
	TransactionTypeCommission TransactionType = "commission" // Комиссия платформы
)

type TransactionPaymentStatus string

const (
	TransactionPaymentPending   TransactionPaymentStatus = "pending"
	TransactionPaymentCompleted TransactionPaymentStatus = "completed"
	TransactionPaymentCancelled TransactionPaymentStatus = "cancelled"
)

// Категории бухгалтерских проводок, создаваемых автоматически
const (
	AccountingCategoryRideIncome  = "ride_income"
	AccountingCategoryPlatformFee = "platform_fee"
)

// AccountingTransaction представляет строку бухгалтерской книги.
// Строки revenue и commission создаются автоматически при завершении
// поездки, строки expense заводятся администратором вручную.
type AccountingTransaction struct {
	ID              string                   `json:"id" gorm:"type:uuid;primaryKey"`
	ReservationID   *string                  `json:"reservation_id,omitempty" gorm:"type:uuid;index"`
	TransactionDate time.Time                `json:"transaction_date" gorm:"not null;index"`
	TransactionType TransactionType          `json:"transaction_type" gorm:"type:varchar(20);not null"`
	Amount          float64                  `json:"amount" gorm:"not null"`
	Category        string                   `json:"category" gorm:"not null"`
	Description     string                   `json:"description,omitempty" gorm:"default:''"`
	PaymentStatus   TransactionPaymentStatus `json:"payment_status" gorm:"type:varchar(20);default:'pending'"`
	CreatedAt       time.Time                `json:"created_at"`
	UpdatedAt       time.Time                `json:"updated_at"`
	Reservation     *Reservation             `json:"-" gorm:"foreignKey:ReservationID"`
}

func (t *AccountingTransaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}
