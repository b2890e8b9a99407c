package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ReservationStatus string

const (
	ReservationStatusPending   ReservationStatus = "pending"   // Ожидает принятия водителем
	ReservationStatusAccepted  ReservationStatus = "accepted"  // Принята водителем
	ReservationStatusStarted   ReservationStatus = "started"   // Водитель выехал
	ReservationStatusArrived   ReservationStatus = "arrived"   // Водитель на месте подачи
	ReservationStatusOnBoard   ReservationStatus = "onBoard"   // Клиент в машине
	ReservationStatusCompleted ReservationStatus = "completed" // Поездка завершена
	ReservationStatusCancelled ReservationStatus = "cancelled" // Поездка отменена
)

type VehicleType string

const (
	VehicleTypeStandard   VehicleType = "standard"
	VehicleTypeBerline    VehicleType = "berline"
	VehicleTypeVan        VehicleType = "van"
	VehicleTypeMiniBus    VehicleType = "mini-bus"
	VehicleTypeFirstClass VehicleType = "first-class"
)

type PaymentType string

const (
	PaymentTypeCash     PaymentType = "cash"
	PaymentTypeCard     PaymentType = "card"
	PaymentTypeTransfer PaymentType = "transfer"
	PaymentTypePaypal   PaymentType = "paypal"
	PaymentTypeStripe   PaymentType = "stripe"
)

// RoutePoint представляет одну точку пройденного маршрута
type RoutePoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Route хранится в колонке jsonb как упорядоченный список точек
type Route []RoutePoint

func (r Route) Value() (driver.Value, error) {
	if len(r) == 0 {
		return nil, nil
	}
	return json.Marshal(r)
}

func (r *Route) Scan(value interface{}) error {
	if value == nil {
		*r = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, r)
	case string:
		return json.Unmarshal([]byte(v), r)
	default:
		return errors.New("неподдерживаемый тип данных для маршрута")
	}
}

// Reservation представляет заказ на поездку — корневая сущность системы
type Reservation struct {
	ID               string            `json:"id" gorm:"type:uuid;primaryKey"`
	ClientName       string            `json:"client_name" gorm:"not null"`
	PickupAddress    string            `json:"pickup_address" gorm:"not null"`
	Destination      string            `json:"destination" gorm:"not null"`
	Phone            string            `json:"phone" gorm:"not null"`
	Date             time.Time         `json:"date" gorm:"not null;index"`
	FlightNumber     string            `json:"flight_number,omitempty" gorm:"default:''"`
	Dispatcher       string            `json:"dispatcher" gorm:"not null"`
	DispatcherLogo   string            `json:"dispatcher_logo,omitempty" gorm:"default:''"`
	Passengers       int               `json:"passengers" gorm:"default:1"`
	Luggage          int               `json:"luggage" gorm:"default:0"`
	VehicleType      VehicleType       `json:"vehicle_type" gorm:"type:varchar(20);not null"`
	PaymentType      PaymentType       `json:"payment_type" gorm:"type:varchar(20);not null"`
	Status           ReservationStatus `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	ActualPickupTime *time.Time        `json:"actual_pickup_time,omitempty"`
	DropoffTime      *time.Time        `json:"dropoff_time,omitempty"`
	Distance         string            `json:"distance,omitempty" gorm:"default:''"`
	Duration         string            `json:"duration,omitempty" gorm:"default:''"`
	Amount           float64           `json:"amount" gorm:"not null"`
	DriverAmount     float64           `json:"driver_amount" gorm:"not null"`
	Commission       float64           `json:"commission" gorm:"not null"`
	Rating           *int              `json:"rating,omitempty"`
	Comment          string            `json:"comment,omitempty" gorm:"default:''"`
	Route            Route             `json:"route,omitempty" gorm:"type:jsonb"`
	DriverID         *string           `json:"driver_id,omitempty" gorm:"type:uuid;index"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
	Driver           *Profile          `json:"-" gorm:"foreignKey:DriverID"`
}

func (r *Reservation) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}
