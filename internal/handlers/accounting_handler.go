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

// Список бухгалтерских проводок с фильтрами
func AccountingList(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := db.Model(&models.AccountingTransaction{})

		if transactionType := c.Query("transaction_type"); transactionType != "" {
			query = query.Where("transaction_type = ?", transactionType)
		}
		if category := c.Query("category"); category != "" {
			query = query.Where("category = ?", category)
		}
		if reservationID := c.Query("reservation_id"); reservationID != "" {
			query = query.Where("reservation_id = ?", reservationID)
		}
		if from := c.Query("date_from"); from != "" {
			if t, err := time.Parse(time.RFC3339, from); err == nil {
				query = query.Where("transaction_date >= ?", t)
			}
		}
		if to := c.Query("date_to"); to != "" {
			if t, err := time.Parse(time.RFC3339, to); err == nil {
				query = query.Where("transaction_date <= ?", t)
			}
		}

		var transactions []models.AccountingTransaction
		if err := query.Order("transaction_date DESC").Find(&transactions).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при получении проводок"})
			return
		}
		c.JSON(http.StatusOK, transactions)
	}
}

// Создание ручной проводки расхода. Автоматические проводки дохода
// и комиссии создаются только машиной состояний заказа.
func AccountingCreateExpense(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			TransactionDate time.Time                       `json:"transaction_date" binding:"required"`
			Amount          float64                         `json:"amount" binding:"required"`
			Category        string                          `json:"category" binding:"required"`
			Description     string                          `json:"description"`
			PaymentStatus   models.TransactionPaymentStatus `json:"payment_status"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат данных: " + err.Error()})
			return
		}

		if req.Category == models.AccountingCategoryRideIncome || req.Category == models.AccountingCategoryPlatformFee {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Эта категория резервируется для автоматических проводок"})
			return
		}

		paymentStatus := req.PaymentStatus
		if paymentStatus == "" {
			paymentStatus = models.TransactionPaymentPending
		}

		transaction := models.AccountingTransaction{
			TransactionDate: req.TransactionDate,
			TransactionType: models.TransactionTypeExpense,
			Amount:          req.Amount,
			Category:        req.Category,
			Description:     req.Description,
			PaymentStatus:   paymentStatus,
		}

		if err := db.Create(&transaction).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при создании проводки"})
			return
		}
		c.JSON(http.StatusCreated, transaction)
	}
}

// Обновление ручной проводки. Автоматические проводки, привязанные
// к заказам, не редактируются.
func AccountingUpdate(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var transaction models.AccountingTransaction
		if err := db.First(&transaction, "id = ?", c.Param("id")).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Проводка не найдена"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при получении проводки"})
			return
		}

		if transaction.ReservationID != nil {
			c.JSON(http.StatusConflict, gin.H{"error": "Автоматические проводки заказов не редактируются"})
			return
		}

		var req struct {
			TransactionDate *time.Time                       `json:"transaction_date"`
			Amount          *float64                         `json:"amount"`
			Category        *string                          `json:"category"`
			Description     *string                          `json:"description"`
			PaymentStatus   *models.TransactionPaymentStatus `json:"payment_status"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат данных"})
			return
		}

		updates := map[string]interface{}{}
		if req.TransactionDate != nil {
			updates["transaction_date"] = *req.TransactionDate
		}
		if req.Amount != nil {
			updates["amount"] = *req.Amount
		}
		if req.Category != nil {
			updates["category"] = *req.Category
		}
		if req.Description != nil {
			updates["description"] = *req.Description
		}
		if req.PaymentStatus != nil {
			updates["payment_status"] = *req.PaymentStatus
		}

		if len(updates) > 0 {
			if err := db.Model(&transaction).Updates(updates).Error; err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при обновлении проводки"})
				return
			}
		}

		db.First(&transaction, "id = ?", transaction.ID)
		c.JSON(http.StatusOK, transaction)
	}
}

// Удаление ручной проводки
func AccountingDelete(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var transaction models.AccountingTransaction
		if err := db.First(&transaction, "id = ?", c.Param("id")).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Проводка не найдена"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при получении проводки"})
			return
		}

		if transaction.ReservationID != nil {
			c.JSON(http.StatusConflict, gin.H{"error": "Автоматические проводки заказов не удаляются"})
			return
		}

		if err := db.Delete(&transaction).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при удалении проводки"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Проводка удалена"})
	}
}

// Сводка доходов, комиссий и расходов за период
func AccountingGetSummary(accounting *services.AccountingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		now := time.Now()
		from := now.AddDate(0, -1, 0)
		to := now

		if v := c.Query("date_from"); v != "" {
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				from = t
			}
		}
		if v := c.Query("date_to"); v != "" {
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				to = t
			}
		}

		summary, err := accounting.Summary(c.Request.Context(), from, to)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при расчете сводки"})
			return
		}
		c.JSON(http.StatusOK, summary)
	}
}

// Ручной запуск сверки проводок для завершенных заказов
func AccountingReconcile(accounting *services.AccountingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		repaired, err := accounting.Reconcile(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при сверке проводок"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"repaired": repaired})
	}
}
