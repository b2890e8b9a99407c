package handlers

import (
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"vtc-dispatch/internal/config"
	"vtc-dispatch/internal/models"
	"vtc-dispatch/internal/services"
)

// Создание заказа диспетчером. Если разбивка суммы не передана, доля
// водителя и комиссия считаются по настроенной ставке; переданная
// разбивка обязана сходиться с суммой заказа.
func ReservationCreate(db *gorm.DB, cfg *config.Config, reservations *services.ReservationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			ClientName     string             `json:"client_name" binding:"required"`
			PickupAddress  string             `json:"pickup_address" binding:"required"`
			Destination    string             `json:"destination" binding:"required"`
			Phone          string             `json:"phone" binding:"required"`
			Date           time.Time          `json:"date" binding:"required"`
			FlightNumber   string             `json:"flight_number"`
			Dispatcher     string             `json:"dispatcher" binding:"required"`
			DispatcherLogo string             `json:"dispatcher_logo"`
			Passengers     int                `json:"passengers"`
			Luggage        int                `json:"luggage"`
			VehicleType    models.VehicleType `json:"vehicle_type" binding:"required"`
			PaymentType    models.PaymentType `json:"payment_type" binding:"required"`
			Amount         float64            `json:"amount" binding:"required"`
			DriverAmount   float64            `json:"driver_amount"`
			Commission     float64            `json:"commission"`
			Distance       string             `json:"distance"`
			Duration       string             `json:"duration"`
		}

		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат данных: " + err.Error()})
			return
		}

		passengers := req.Passengers
		if passengers <= 0 {
			passengers = 1
		}

		amount := round2(req.Amount)
		driverAmount := req.DriverAmount
		commission := req.Commission
		if driverAmount == 0 && commission == 0 {
			commission = round2(amount * cfg.CommissionRate)
			driverAmount = round2(amount - commission)
		} else if math.Abs(amount-(driverAmount+commission)) > 0.01 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Сумма заказа не сходится с долей водителя и комиссией"})
			return
		}

		reservation := models.Reservation{
			ClientName:     req.ClientName,
			PickupAddress:  req.PickupAddress,
			Destination:    req.Destination,
			Phone:          req.Phone,
			Date:           req.Date,
			FlightNumber:   req.FlightNumber,
			Dispatcher:     req.Dispatcher,
			DispatcherLogo: req.DispatcherLogo,
			Passengers:     passengers,
			Luggage:        req.Luggage,
			VehicleType:    req.VehicleType,
			PaymentType:    req.PaymentType,
			Amount:         amount,
			DriverAmount:   driverAmount,
			Commission:     commission,
			Distance:       req.Distance,
			Duration:       req.Duration,
		}

		if err := reservations.Create(c.Request.Context(), &reservation); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при создании заказа"})
			return
		}

		c.JSON(http.StatusCreated, reservation)
	}
}

// Список заказов с фильтрами по статусу и дате
func ReservationList(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := db.Model(&models.Reservation{})

		if status := c.Query("status"); status != "" {
			query = query.Where("status = ?", status)
		}
		if driverID := c.Query("driver_id"); driverID != "" {
			query = query.Where("driver_id = ?", driverID)
		}
		if from := c.Query("date_from"); from != "" {
			if t, err := time.Parse(time.RFC3339, from); err == nil {
				query = query.Where("date >= ?", t)
			}
		}
		if to := c.Query("date_to"); to != "" {
			if t, err := time.Parse(time.RFC3339, to); err == nil {
				query = query.Where("date <= ?", t)
			}
		}

		var list []models.Reservation
		if err := query.Order("date DESC").Find(&list).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при получении заказов"})
			return
		}

		c.JSON(http.StatusOK, list)
	}
}

// Получение заказа по ID
func ReservationGetByID(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var reservation models.Reservation
		if err := db.First(&reservation, "id = ?", c.Param("id")).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Заказ не найден"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при получении заказа"})
			return
		}
		c.JSON(http.StatusOK, reservation)
	}
}

// Редактирование деталей заказа в статусе pending. После принятия
// водителем детали заказа фиксируются.
func ReservationUpdate(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var reservation models.Reservation
		if err := db.First(&reservation, "id = ?", c.Param("id")).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Заказ не найден"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при получении заказа"})
			return
		}

		if reservation.Status != models.ReservationStatusPending {
			c.JSON(http.StatusConflict, gin.H{"error": "Редактировать можно только заказы в ожидании"})
			return
		}

		var req struct {
			ClientName    *string             `json:"client_name"`
			PickupAddress *string             `json:"pickup_address"`
			Destination   *string             `json:"destination"`
			Phone         *string             `json:"phone"`
			Date          *time.Time          `json:"date"`
			FlightNumber  *string             `json:"flight_number"`
			Passengers    *int                `json:"passengers"`
			Luggage       *int                `json:"luggage"`
			VehicleType   *models.VehicleType `json:"vehicle_type"`
			PaymentType   *models.PaymentType `json:"payment_type"`
			Amount        *float64            `json:"amount"`
			DriverAmount  *float64            `json:"driver_amount"`
			Commission    *float64            `json:"commission"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат данных"})
			return
		}

		updates := map[string]interface{}{}
		if req.ClientName != nil {
			updates["client_name"] = *req.ClientName
		}
		if req.PickupAddress != nil {
			updates["pickup_address"] = *req.PickupAddress
		}
		if req.Destination != nil {
			updates["destination"] = *req.Destination
		}
		if req.Phone != nil {
			updates["phone"] = *req.Phone
		}
		if req.Date != nil {
			updates["date"] = *req.Date
		}
		if req.FlightNumber != nil {
			updates["flight_number"] = *req.FlightNumber
		}
		if req.Passengers != nil {
			updates["passengers"] = *req.Passengers
		}
		if req.Luggage != nil {
			updates["luggage"] = *req.Luggage
		}
		if req.VehicleType != nil {
			updates["vehicle_type"] = *req.VehicleType
		}
		if req.PaymentType != nil {
			updates["payment_type"] = *req.PaymentType
		}
		if req.Amount != nil {
			updates["amount"] = *req.Amount
		}
		if req.DriverAmount != nil {
			updates["driver_amount"] = *req.DriverAmount
		}
		if req.Commission != nil {
			updates["commission"] = *req.Commission
		}

		if len(updates) > 0 {
			// Обновление проходит только пока заказ все еще в ожидании
			result := db.Model(&models.Reservation{}).
				Where("id = ? AND status = ?", reservation.ID, models.ReservationStatusPending).
				Updates(updates)
			if result.Error != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при обновлении заказа"})
				return
			}
			if result.RowsAffected == 0 {
				c.JSON(http.StatusConflict, gin.H{"error": "Статус заказа изменился, обновите данные"})
				return
			}
		}

		db.First(&reservation, "id = ?", reservation.ID)
		c.JSON(http.StatusOK, reservation)
	}
}

// Принятие заказа водителем
func ReservationAccept(reservations *services.ReservationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			DriverID string `json:"driver_id"`
		}
		// Тело необязательно: диспетчер может принять заказ без назначения водителя
		_ = c.ShouldBindJSON(&req)

		if req.DriverID == "" {
			if userID, ok := c.Get("user_id"); ok {
				req.DriverID, _ = userID.(string)
			}
		}

		updated, err := reservations.Accept(c.Request.Context(), c.Param("id"), req.DriverID)
		if err != nil {
			respondTransitionError(c, err)
			return
		}
		c.JSON(http.StatusOK, updated)
	}
}

// Отклонение заказа в ожидании
func ReservationReject(reservations *services.ReservationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		updated, err := reservations.Reject(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondTransitionError(c, err)
			return
		}
		c.JSON(http.StatusOK, updated)
	}
}

// Водитель выехал к клиенту
func ReservationStart(reservations *services.ReservationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		updated, err := reservations.Start(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondTransitionError(c, err)
			return
		}
		c.JSON(http.StatusOK, updated)
	}
}

// Водитель прибыл на место подачи
func ReservationArrive(reservations *services.ReservationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		updated, err := reservations.Arrive(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondTransitionError(c, err)
			return
		}
		c.JSON(http.StatusOK, updated)
	}
}

// Клиент сел в машину
func ReservationBoard(reservations *services.ReservationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		updated, err := reservations.Board(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondTransitionError(c, err)
			return
		}
		c.JSON(http.StatusOK, updated)
	}
}

// Завершение поездки с оценкой и комментарием
func ReservationComplete(reservations *services.ReservationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Rating  int    `json:"rating"`
			Comment string `json:"comment"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат данных"})
			return
		}

		updated, err := reservations.Complete(c.Request.Context(), c.Param("id"), services.CompletionData{
			Rating:  req.Rating,
			Comment: req.Comment,
		})
		if err != nil {
			respondTransitionError(c, err)
			return
		}
		c.JSON(http.StatusOK, updated)
	}
}

// Произвольный переход статуса из диспетчерского интерфейса. Клиент
// присылает статус, который он видел на момент действия, расхождение
// со свежим состоянием возвращается как конфликт.
func ReservationSetStatus(reservations *services.ReservationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			ExpectedStatus models.ReservationStatus `json:"expected_status" binding:"required"`
			Status         models.ReservationStatus `json:"status" binding:"required"`
			Rating         int                      `json:"rating"`
			Comment        string                   `json:"comment"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат данных: " + err.Error()})
			return
		}

		var completion *services.CompletionData
		if req.Status == models.ReservationStatusCompleted {
			completion = &services.CompletionData{Rating: req.Rating, Comment: req.Comment}
		}

		updated, err := reservations.Transition(c.Request.Context(), c.Param("id"), req.ExpectedStatus, req.Status, completion)
		if err != nil {
			respondTransitionError(c, err)
			return
		}
		c.JSON(http.StatusOK, updated)
	}
}

// respondTransitionError переводит доменные ошибки машины состояний
// в HTTP коды
func respondTransitionError(c *gin.Context, err error) {
	var (
		invalid     *services.InvalidTransitionError
		stale       *services.StaleStateError
		missingData *services.MissingCompletionDataError
		tooEarly    *services.StartWindowError
		accounting  *services.AccountingSyncError
	)

	switch {
	case errors.Is(err, services.ErrReservationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Заказ не найден"})
	case errors.Is(err, services.ErrDriverNotEligible):
		c.JSON(http.StatusForbidden, gin.H{"error": "Водитель не допущен к выполнению заказов"})
	case errors.As(err, &invalid):
		c.JSON(http.StatusConflict, gin.H{
			"error":       "Недопустимый переход статуса",
			"from_status": invalid.From,
			"to_status":   invalid.To,
		})
	case errors.As(err, &stale):
		c.JSON(http.StatusConflict, gin.H{
			"error":           "Статус заказа уже изменен, обновите данные",
			"expected_status": stale.Expected,
			"actual_status":   stale.Actual,
		})
	case errors.As(err, &missingData):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Для завершения поездки требуется оценка от 1 до 5"})
	case errors.As(err, &tooEarly):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":        "Начинать поездку еще рано",
			"allowed_from": tooEarly.AllowedFrom,
		})
	case errors.As(err, &accounting):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось зафиксировать бухгалтерские проводки, завершение отменено"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Внутренняя ошибка сервера"})
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
