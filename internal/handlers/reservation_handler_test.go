package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"vtc-dispatch/internal/config"
	"vtc-dispatch/internal/models"
	"vtc-dispatch/internal/services"
)

func newReservationRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		RideStartWindow: 2 * time.Hour,
		CommissionRate:  0.30,
	}
	accounting := services.NewAccountingService(db)
	reservations := services.NewReservationService(db, cfg, accounting, nil, nil)

	r := gin.New()
	r.POST("/reservations", ReservationCreate(db, cfg, reservations))
	return r
}

func reservationCreateBody(overrides map[string]interface{}) []byte {
	payload := map[string]interface{}{
		"client_name":    "Pierre Dupont",
		"pickup_address": "Aéroport CDG",
		"destination":    "Paris Centre",
		"phone":          "+33612345678",
		"date":           time.Now().Add(24 * time.Hour).Format(time.RFC3339),
		"dispatcher":     "Central",
		"vehicle_type":   "berline",
		"payment_type":   "card",
		"amount":         100.0,
	}
	for k, v := range overrides {
		payload[k] = v
	}
	body, _ := json.Marshal(payload)
	return body
}

func TestReservationCreateDerivesSplitFromRate(t *testing.T) {
	db := newHandlerTestDB(t)
	r := newReservationRouter(db)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/reservations", bytes.NewReader(reservationCreateBody(nil)))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	var created models.Reservation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	// Разбивка рассчитана по ставке комиссии 30%
	assert.Equal(t, 100.0, created.Amount)
	assert.Equal(t, 30.0, created.Commission)
	assert.Equal(t, 70.0, created.DriverAmount)

	var stored models.Reservation
	require.NoError(t, db.First(&stored, "id = ?", created.ID).Error)
	assert.InDelta(t, stored.Amount, stored.DriverAmount+stored.Commission, 0.01)
}

func TestReservationCreateKeepsExplicitSplit(t *testing.T) {
	db := newHandlerTestDB(t)
	r := newReservationRouter(db)

	body := reservationCreateBody(map[string]interface{}{
		"driver_amount": 80.0,
		"commission":    20.0,
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/reservations", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	var created models.Reservation
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, 80.0, created.DriverAmount)
	assert.Equal(t, 20.0, created.Commission)
}

func TestReservationCreateRejectsMismatchedSplit(t *testing.T) {
	db := newHandlerTestDB(t)
	r := newReservationRouter(db)

	body := reservationCreateBody(map[string]interface{}{
		"driver_amount": 50.0,
		"commission":    30.0,
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/reservations", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var count int64
	require.NoError(t, db.Model(&models.Reservation{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}
