package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ZoneType string

const (
	ZoneTypeCity     ZoneType = "city"
	ZoneTypeAirport  ZoneType = "airport"
	ZoneTypeStation  ZoneType = "station"
	ZoneTypeDistrict ZoneType = "district"
)

// Coordinates хранятся в колонке jsonb в виде {"lat": ..., "lng": ...}
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

func (c Coordinates) Value() (driver.Value, error) {
	return json.Marshal(c)
}

func (c *Coordinates) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, c)
	case string:
		return json.Unmarshal([]byte(v), c)
	default:
		return errors.New("неподдерживаемый тип данных для координат")
	}
}

// GeographicZone — именованная географическая зона, конечная точка тарифа
type GeographicZone struct {
	ID          string      `json:"id" gorm:"type:uuid;primaryKey"`
	Name        string      `json:"name" gorm:"not null"`
	ZoneType    ZoneType    `json:"zone_type" gorm:"type:varchar(20);not null"`
	Description string      `json:"description,omitempty" gorm:"default:''"`
	Coordinates Coordinates `json:"coordinates" gorm:"type:jsonb"`
	Active      bool        `json:"active"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func (z *GeographicZone) BeforeCreate(tx *gorm.DB) error {
	if z.ID == "" {
		z.ID = uuid.NewString()
	}
	return nil
}
