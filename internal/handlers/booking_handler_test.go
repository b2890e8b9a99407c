package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"vtc-dispatch/internal/config"
	"vtc-dispatch/internal/models"
	"vtc-dispatch/internal/services"
)

func newHandlerTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.Profile{},
		&models.UserRole{},
		&models.DriverDocument{},
		&models.GeographicZone{},
		&models.PricingRule{},
		&models.AirportPackage{},
		&models.Reservation{},
		&models.AccountingTransaction{},
	))
	return db
}

func newBookingRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		RideStartWindow: 2 * time.Hour,
		CommissionRate:  0.30,
	}
	pricing := services.NewPricingService(db, cfg, nil)
	accounting := services.NewAccountingService(db)
	reservations := services.NewReservationService(db, cfg, accounting, nil, nil)

	r := gin.New()
	r.GET("/booking/zones", BookingListZones(db))
	r.POST("/booking/quote", BookingQuote(pricing))
	r.POST("/booking", BookingCreate(db, pricing, reservations))
	return r
}

func TestBookingCreateAppliesWebDefaults(t *testing.T) {
	db := newHandlerTestDB(t)
	r := newBookingRouter(db)

	airport := models.GeographicZone{Name: "Aéroport CDG", ZoneType: models.ZoneTypeAirport, Active: true}
	city := models.GeographicZone{Name: "Paris Centre", ZoneType: models.ZoneTypeCity, Active: true}
	require.NoError(t, db.Create(&airport).Error)
	require.NoError(t, db.Create(&city).Error)
	require.NoError(t, db.Create(&models.AirportPackage{
		PackageName:       "CDG - Paris",
		AirportZoneID:     airport.ID,
		DestinationZoneID: &city.ID,
		VehicleType:       models.VehicleTypeBerline,
		FlatRate:          100,
		Active:            true,
	}).Error)

	body, _ := json.Marshal(map[string]interface{}{
		"phone":               "+33612345678",
		"pickup_zone_id":      airport.ID,
		"destination_zone_id": city.ID,
		"date":                time.Now().Add(24 * time.Hour).Format(time.RFC3339),
		"vehicle_type":        "berline",
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/booking", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	var created models.Reservation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	// Значения по умолчанию анонимного веб-бронирования
	assert.Equal(t, "Client Web", created.ClientName)
	assert.Equal(t, "Web Booking", created.Dispatcher)
	assert.Equal(t, models.PaymentTypeCard, created.PaymentType)
	assert.Equal(t, models.ReservationStatusPending, created.Status)

	// Сумма рассчитана на сервере из пакета аэропорта
	assert.Equal(t, 100.0, created.Amount)
	assert.Equal(t, 30.0, created.Commission)
	assert.Equal(t, 70.0, created.DriverAmount)
}

func TestBookingQuoteNotFoundWithoutTariff(t *testing.T) {
	db := newHandlerTestDB(t)
	r := newBookingRouter(db)

	zoneA := models.GeographicZone{Name: "Zone A", ZoneType: models.ZoneTypeCity, Active: true}
	zoneB := models.GeographicZone{Name: "Zone B", ZoneType: models.ZoneTypeCity, Active: true}
	require.NoError(t, db.Create(&zoneA).Error)
	require.NoError(t, db.Create(&zoneB).Error)

	body, _ := json.Marshal(map[string]interface{}{
		"pickup_zone_id":      zoneA.ID,
		"destination_zone_id": zoneB.ID,
		"vehicle_type":        "van",
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/booking/quote", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBookingCreateRejectsInactiveZone(t *testing.T) {
	db := newHandlerTestDB(t)
	r := newBookingRouter(db)

	airport := models.GeographicZone{Name: "Aéroport CDG", ZoneType: models.ZoneTypeAirport, Active: true}
	inactive := models.GeographicZone{Name: "Ancienne zone", ZoneType: models.ZoneTypeCity, Active: false}
	require.NoError(t, db.Create(&airport).Error)
	require.NoError(t, db.Create(&inactive).Error)

	body, _ := json.Marshal(map[string]interface{}{
		"phone":               "+33612345678",
		"pickup_zone_id":      airport.ID,
		"destination_zone_id": inactive.ID,
		"date":                time.Now().Add(24 * time.Hour).Format(time.RFC3339),
		"vehicle_type":        "berline",
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/booking", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
