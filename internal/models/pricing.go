package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PricingRule — тариф для пары зон и типа автомобиля.
// Правила однонаправленные: zone_from -> zone_to, обратное направление
// требует отдельного правила.
type PricingRule struct {
	ID             string          `json:"id" gorm:"type:uuid;primaryKey"`
	Name           string          `json:"name" gorm:"not null"`
	ZoneFromID     string          `json:"zone_from_id" gorm:"type:uuid;not null;index"`
	ZoneToID       string          `json:"zone_to_id" gorm:"type:uuid;not null;index"`
	VehicleType    VehicleType     `json:"vehicle_type" gorm:"type:varchar(20);not null"`
	BasePrice      float64         `json:"base_price" gorm:"not null"`
	// Флаги без gorm-тега default: при вставке gorm опускает нулевые
	// значения полей с default, и явный false превращался бы в true
	IsFlatRate     bool            `json:"is_flat_rate"`
	PricePerKm     *float64        `json:"price_per_km,omitempty"`
	PricePerMinute *float64        `json:"price_per_minute,omitempty"`
	Active         bool            `json:"active"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	ZoneFrom       *GeographicZone `json:"-" gorm:"foreignKey:ZoneFromID"`
	ZoneTo         *GeographicZone `json:"-" gorm:"foreignKey:ZoneToID"`
}

func (p *PricingRule) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// AirportPackage — фиксированный пакет для аэропорта.
// destination_zone_id = NULL означает "любое направление".
// Пакеты имеют приоритет над обычными тарифами.
type AirportPackage struct {
	ID                  string          `json:"id" gorm:"type:uuid;primaryKey"`
	PackageName         string          `json:"package_name" gorm:"not null"`
	AirportZoneID       string          `json:"airport_zone_id" gorm:"type:uuid;not null;index"`
	DestinationZoneID   *string         `json:"destination_zone_id,omitempty" gorm:"type:uuid;index"`
	VehicleType         VehicleType     `json:"vehicle_type" gorm:"type:varchar(20);not null"`
	FlatRate            float64         `json:"flat_rate" gorm:"not null"`
	IncludedWaitingTime int             `json:"included_waiting_time" gorm:"default:0"`
	ExtraWaitingPrice   *float64        `json:"extra_waiting_price,omitempty"`
	Description         string          `json:"description,omitempty" gorm:"default:''"`
	Active              bool            `json:"active"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
	AirportZone         *GeographicZone `json:"-" gorm:"foreignKey:AirportZoneID"`
	DestinationZone     *GeographicZone `json:"-" gorm:"foreignKey:DestinationZoneID"`
}

func (p *AirportPackage) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
