package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"vtc-dispatch/internal/models"
)

// Получение профиля текущего пользователя
func GetCurrentUser(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := c.Get("user_id")

		var profile models.Profile
		if err := db.First(&profile, "id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Пользователь не найден"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при получении профиля"})
			return
		}

		c.JSON(http.StatusOK, toProfileResponse(db, &profile))
	}
}

// Обновление профиля текущего пользователя
func UpdateProfile(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := c.Get("user_id")

		var req struct {
			FullName  *string `json:"full_name"`
			AvatarUrl *string `json:"avatar_url"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат данных"})
			return
		}

		updates := map[string]interface{}{}
		if req.FullName != nil {
			updates["full_name"] = *req.FullName
		}
		if req.AvatarUrl != nil {
			updates["avatar_url"] = *req.AvatarUrl
		}

		if len(updates) > 0 {
			if err := db.Model(&models.Profile{}).Where("id = ?", userID).Updates(updates).Error; err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при обновлении профиля"})
				return
			}
		}

		var profile models.Profile
		if err := db.First(&profile, "id = ?", userID).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при получении профиля"})
			return
		}

		c.JSON(http.StatusOK, toProfileResponse(db, &profile))
	}
}

// Сохранение FCM токена для push-уведомлений
func UpdateFCMToken(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := c.Get("user_id")

		var req struct {
			FCMToken string `json:"fcm_token" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат данных"})
			return
		}

		if err := db.Model(&models.Profile{}).
			Where("id = ?", userID).
			Update("fcm_token", req.FCMToken).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при сохранении FCM токена"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "FCM токен обновлен"})
	}
}
