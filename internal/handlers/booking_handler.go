package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"vtc-dispatch/internal/models"
	"vtc-dispatch/internal/services"
)

// Публичный список активных зон для формы бронирования
func BookingListZones(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var zones []models.GeographicZone
		if err := db.Where("active = ?", true).Order("name ASC").Find(&zones).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при получении зон"})
			return
		}
		c.JSON(http.StatusOK, zones)
	}
}

// Публичный расчет стоимости поездки
func BookingQuote(pricing *services.PricingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			PickupZoneID      string             `json:"pickup_zone_id" binding:"required"`
			DestinationZoneID string             `json:"destination_zone_id" binding:"required"`
			VehicleType       models.VehicleType `json:"vehicle_type" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат данных"})
			return
		}

		quote, err := pricing.Resolve(c.Request.Context(), req.PickupZoneID, req.DestinationZoneID, req.VehicleType)
		if err != nil {
			var noPrice *services.NoPriceError
			if errors.As(err, &noPrice) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Тариф для выбранного маршрута не найден"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при расчете стоимости"})
			return
		}

		c.JSON(http.StatusOK, quote)
	}
}

// Публичное бронирование с сайта. Стоимость всегда рассчитывается
// на сервере, клиентская сумма не принимается.
func BookingCreate(db *gorm.DB, pricing *services.PricingService, reservations *services.ReservationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			ClientName        string             `json:"client_name"`
			Phone             string             `json:"phone" binding:"required"`
			PickupZoneID      string             `json:"pickup_zone_id" binding:"required"`
			DestinationZoneID string             `json:"destination_zone_id" binding:"required"`
			PickupAddress     string             `json:"pickup_address"`
			Destination       string             `json:"destination"`
			Date              time.Time          `json:"date" binding:"required"`
			FlightNumber      string             `json:"flight_number"`
			Passengers        int                `json:"passengers"`
			Luggage           int                `json:"luggage"`
			VehicleType       models.VehicleType `json:"vehicle_type" binding:"required"`
			PaymentType       models.PaymentType `json:"payment_type"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат данных: " + err.Error()})
			return
		}

		var pickupZone, destinationZone models.GeographicZone
		if err := db.First(&pickupZone, "id = ? AND active = ?", req.PickupZoneID, true).Error; err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Зона подачи не найдена"})
			return
		}
		if err := db.First(&destinationZone, "id = ? AND active = ?", req.DestinationZoneID, true).Error; err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Зона назначения не найдена"})
			return
		}

		quote, err := pricing.Resolve(c.Request.Context(), req.PickupZoneID, req.DestinationZoneID, req.VehicleType)
		if err != nil {
			var noPrice *services.NoPriceError
			if errors.As(err, &noPrice) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Тариф для выбранного маршрута не найден"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при расчете стоимости"})
			return
		}

		// Значения по умолчанию для анонимного веб-бронирования
		clientName := req.ClientName
		if clientName == "" {
			clientName = "Client Web"
		}
		paymentType := req.PaymentType
		if paymentType == "" {
			paymentType = models.PaymentTypeCard
		}
		pickupAddress := req.PickupAddress
		if pickupAddress == "" {
			pickupAddress = pickupZone.Name
		}
		destination := req.Destination
		if destination == "" {
			destination = destinationZone.Name
		}
		passengers := req.Passengers
		if passengers <= 0 {
			passengers = 1
		}

		reservation := models.Reservation{
			ClientName:    clientName,
			PickupAddress: pickupAddress,
			Destination:   destination,
			Phone:         req.Phone,
			Date:          req.Date,
			FlightNumber:  req.FlightNumber,
			Dispatcher:    "Web Booking",
			Passengers:    passengers,
			Luggage:       req.Luggage,
			VehicleType:   req.VehicleType,
			PaymentType:   paymentType,
			Amount:        quote.Amount,
			DriverAmount:  quote.DriverAmount,
			Commission:    quote.Commission,
		}

		if err := reservations.Create(c.Request.Context(), &reservation); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при создании бронирования"})
			return
		}

		c.JSON(http.StatusCreated, reservation)
	}
}
