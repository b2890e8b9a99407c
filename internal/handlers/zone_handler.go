package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"vtc-dispatch/internal/models"
	"vtc-dispatch/internal/services"
)

// Список всех зон для панели администратора
func ZoneList(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := db.Model(&models.GeographicZone{})
		if zoneType := c.Query("zone_type"); zoneType != "" {
			query = query.Where("zone_type = ?", zoneType)
		}

		var zones []models.GeographicZone
		if err := query.Order("name ASC").Find(&zones).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при получении зон"})
			return
		}
		c.JSON(http.StatusOK, zones)
	}
}

// Создание зоны
func ZoneCreate(db *gorm.DB, pricing *services.PricingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Name        string             `json:"name" binding:"required"`
			ZoneType    models.ZoneType    `json:"zone_type" binding:"required"`
			Description string             `json:"description"`
			Coordinates models.Coordinates `json:"coordinates"`
			Active      *bool              `json:"active"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат данных: " + err.Error()})
			return
		}

		zone := models.GeographicZone{
			Name:        req.Name,
			ZoneType:    req.ZoneType,
			Description: req.Description,
			Coordinates: req.Coordinates,
			Active:      true,
		}
		if req.Active != nil {
			zone.Active = *req.Active
		}

		if err := db.Create(&zone).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при создании зоны"})
			return
		}

		pricing.InvalidateCache(c.Request.Context())
		c.JSON(http.StatusCreated, zone)
	}
}

// Обновление зоны
func ZoneUpdate(db *gorm.DB, pricing *services.PricingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var zone models.GeographicZone
		if err := db.First(&zone, "id = ?", c.Param("id")).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Зона не найдена"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при получении зоны"})
			return
		}

		var req struct {
			Name        *string             `json:"name"`
			ZoneType    *models.ZoneType    `json:"zone_type"`
			Description *string             `json:"description"`
			Coordinates *models.Coordinates `json:"coordinates"`
			Active      *bool               `json:"active"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат данных"})
			return
		}

		updates := map[string]interface{}{}
		if req.Name != nil {
			updates["name"] = *req.Name
		}
		if req.ZoneType != nil {
			updates["zone_type"] = *req.ZoneType
		}
		if req.Description != nil {
			updates["description"] = *req.Description
		}
		if req.Coordinates != nil {
			updates["coordinates"] = *req.Coordinates
		}
		if req.Active != nil {
			updates["active"] = *req.Active
		}

		if len(updates) > 0 {
			if err := db.Model(&zone).Updates(updates).Error; err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при обновлении зоны"})
				return
			}
			pricing.InvalidateCache(c.Request.Context())
		}

		db.First(&zone, "id = ?", zone.ID)
		c.JSON(http.StatusOK, zone)
	}
}

// Деактивация зоны. Зона не удаляется физически, пока на нее
// ссылаются тарифы и пакеты.
func ZoneDelete(db *gorm.DB, pricing *services.PricingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		result := db.Model(&models.GeographicZone{}).
			Where("id = ?", c.Param("id")).
			Update("active", false)
		if result.Error != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при деактивации зоны"})
			return
		}
		if result.RowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Зона не найдена"})
			return
		}

		pricing.InvalidateCache(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"message": "Зона деактивирована"})
	}
}
