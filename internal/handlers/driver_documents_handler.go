package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"vtc-dispatch/internal/models"
	"vtc-dispatch/internal/services"
	"vtc-dispatch/internal/websocket"
)

// Загрузка документа водителем. Документ попадает в очередь модерации
// в статусе pending.
func DriverDocumentsSubmit(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := c.Get("user_id")

		var req struct {
			DocumentType string `json:"document_type" binding:"required"`
			DocumentName string `json:"document_name" binding:"required"`
			DocumentUrl  string `json:"document_url" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат данных: " + err.Error()})
			return
		}

		document := models.DriverDocument{
			UserID:       userID.(string),
			DocumentType: req.DocumentType,
			DocumentName: req.DocumentName,
			DocumentUrl:  req.DocumentUrl,
			Status:       models.DocumentStatusPending,
		}

		if err := db.Create(&document).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при сохранении документа"})
			return
		}
		c.JSON(http.StatusCreated, document)
	}
}

// Список документов текущего водителя
func DriverDocumentsGet(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := c.Get("user_id")

		var documents []models.DriverDocument
		if err := db.Where("user_id = ?", userID).
			Order("uploaded_at DESC").
			Find(&documents).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при получении документов"})
			return
		}
		c.JSON(http.StatusOK, documents)
	}
}

// Список документов на модерации для панели администратора
func DriverDocumentsListPending(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := c.Query("status")
		if status == "" {
			status = string(models.DocumentStatusPending)
		}

		var documents []models.DriverDocument
		if err := db.Where("status = ?", status).
			Order("uploaded_at ASC").
			Find(&documents).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при получении документов"})
			return
		}
		c.JSON(http.StatusOK, documents)
	}
}

// Модерация документа администратором. Водитель получает уведомление
// о результате по WebSocket и push.
func DriverDocumentsUpdateStatus(db *gorm.DB, firebase *services.FirebaseService) gin.HandlerFunc {
	return func(c *gin.Context) {
		adminID, _ := c.Get("user_id")

		var req struct {
			Status          models.DriverDocumentStatus `json:"status" binding:"required"`
			RejectionReason string                      `json:"rejection_reason"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат данных"})
			return
		}

		switch req.Status {
		case models.DocumentStatusApproved, models.DocumentStatusRejected, models.DocumentStatusRevision:
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "Недопустимый статус документа"})
			return
		}

		var document models.DriverDocument
		if err := db.First(&document, "id = ?", c.Param("id")).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Документ не найден"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при получении документа"})
			return
		}

		now := time.Now()
		updates := map[string]interface{}{
			"status":      req.Status,
			"verified_at": now,
		}
		if adminStr, ok := adminID.(string); ok && adminStr != "" {
			updates["verified_by"] = adminStr
		}
		if req.Status == models.DocumentStatusRejected || req.Status == models.DocumentStatusRevision {
			updates["rejection_reason"] = req.RejectionReason
		} else {
			updates["rejection_reason"] = ""
		}

		if err := db.Model(&document).Updates(updates).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при обновлении документа"})
			return
		}

		websocket.SendDocumentStatusUpdate(document.UserID, document.ID, string(req.Status))

		if firebase != nil {
			var profile models.Profile
			if err := db.First(&profile, "id = ?", document.UserID).Error; err == nil && profile.FCMToken != "" {
				go firebase.SendNotification(profile.FCMToken,
					"Statut du document",
					"Document "+document.DocumentName+": "+string(req.Status),
					map[string]interface{}{
						"type":        websocket.DocumentStatusUpdateType,
						"document_id": document.ID,
						"status":      string(req.Status),
					})
			}
		}

		db.First(&document, "id = ?", document.ID)
		c.JSON(http.StatusOK, document)
	}
}

// Удаление документа владельцем
func DriverDocumentsDelete(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := c.Get("user_id")

		result := db.Delete(&models.DriverDocument{}, "id = ? AND user_id = ?", c.Param("id"), userID)
		if result.Error != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при удалении документа"})
			return
		}
		if result.RowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Документ не найден"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Документ удален"})
	}
}
