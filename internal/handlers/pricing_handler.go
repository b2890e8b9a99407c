package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"vtc-dispatch/internal/models"
	"vtc-dispatch/internal/services"
)

// Список тарифов
func PricingRuleList(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := db.Model(&models.PricingRule{})
		if vehicleType := c.Query("vehicle_type"); vehicleType != "" {
			query = query.Where("vehicle_type = ?", vehicleType)
		}

		var rules []models.PricingRule
		if err := query.Order("created_at DESC").Find(&rules).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при получении тарифов"})
			return
		}
		c.JSON(http.StatusOK, rules)
	}
}

// Создание тарифа
func PricingRuleCreate(db *gorm.DB, pricing *services.PricingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Name           string             `json:"name" binding:"required"`
			ZoneFromID     string             `json:"zone_from_id" binding:"required"`
			ZoneToID       string             `json:"zone_to_id" binding:"required"`
			VehicleType    models.VehicleType `json:"vehicle_type" binding:"required"`
			BasePrice      float64            `json:"base_price" binding:"required"`
			IsFlatRate     *bool              `json:"is_flat_rate"`
			PricePerKm     *float64           `json:"price_per_km"`
			PricePerMinute *float64           `json:"price_per_minute"`
			Active         *bool              `json:"active"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат данных: " + err.Error()})
			return
		}

		rule := models.PricingRule{
			Name:           req.Name,
			ZoneFromID:     req.ZoneFromID,
			ZoneToID:       req.ZoneToID,
			VehicleType:    req.VehicleType,
			BasePrice:      req.BasePrice,
			IsFlatRate:     true,
			PricePerKm:     req.PricePerKm,
			PricePerMinute: req.PricePerMinute,
			Active:         true,
		}
		if req.IsFlatRate != nil {
			rule.IsFlatRate = *req.IsFlatRate
		}
		if req.Active != nil {
			rule.Active = *req.Active
		}

		if err := db.Create(&rule).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при создании тарифа"})
			return
		}

		pricing.InvalidateCache(c.Request.Context())
		c.JSON(http.StatusCreated, rule)
	}
}

// Обновление тарифа
func PricingRuleUpdate(db *gorm.DB, pricing *services.PricingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var rule models.PricingRule
		if err := db.First(&rule, "id = ?", c.Param("id")).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Тариф не найден"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при получении тарифа"})
			return
		}

		var req struct {
			Name           *string             `json:"name"`
			BasePrice      *float64            `json:"base_price"`
			IsFlatRate     *bool               `json:"is_flat_rate"`
			PricePerKm     *float64            `json:"price_per_km"`
			PricePerMinute *float64            `json:"price_per_minute"`
			Active         *bool               `json:"active"`
			VehicleType    *models.VehicleType `json:"vehicle_type"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат данных"})
			return
		}

		updates := map[string]interface{}{}
		if req.Name != nil {
			updates["name"] = *req.Name
		}
		if req.BasePrice != nil {
			updates["base_price"] = *req.BasePrice
		}
		if req.IsFlatRate != nil {
			updates["is_flat_rate"] = *req.IsFlatRate
		}
		if req.PricePerKm != nil {
			updates["price_per_km"] = *req.PricePerKm
		}
		if req.PricePerMinute != nil {
			updates["price_per_minute"] = *req.PricePerMinute
		}
		if req.Active != nil {
			updates["active"] = *req.Active
		}
		if req.VehicleType != nil {
			updates["vehicle_type"] = *req.VehicleType
		}

		if len(updates) > 0 {
			if err := db.Model(&rule).Updates(updates).Error; err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при обновлении тарифа"})
				return
			}
			pricing.InvalidateCache(c.Request.Context())
		}

		db.First(&rule, "id = ?", rule.ID)
		c.JSON(http.StatusOK, rule)
	}
}

// Удаление тарифа
func PricingRuleDelete(db *gorm.DB, pricing *services.PricingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		result := db.Delete(&models.PricingRule{}, "id = ?", c.Param("id"))
		if result.Error != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при удалении тарифа"})
			return
		}
		if result.RowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Тариф не найден"})
			return
		}

		pricing.InvalidateCache(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"message": "Тариф удален"})
	}
}

// Список пакетов аэропортов
func AirportPackageList(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := db.Model(&models.AirportPackage{})
		if airportZoneID := c.Query("airport_zone_id"); airportZoneID != "" {
			query = query.Where("airport_zone_id = ?", airportZoneID)
		}

		var packages []models.AirportPackage
		if err := query.Order("created_at DESC").Find(&packages).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при получении пакетов"})
			return
		}
		c.JSON(http.StatusOK, packages)
	}
}

// Создание пакета аэропорта. destination_zone_id можно не указывать,
// тогда пакет действует для любого направления.
func AirportPackageCreate(db *gorm.DB, pricing *services.PricingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			PackageName         string             `json:"package_name" binding:"required"`
			AirportZoneID       string             `json:"airport_zone_id" binding:"required"`
			DestinationZoneID   *string            `json:"destination_zone_id"`
			VehicleType         models.VehicleType `json:"vehicle_type" binding:"required"`
			FlatRate            float64            `json:"flat_rate" binding:"required"`
			IncludedWaitingTime int                `json:"included_waiting_time"`
			ExtraWaitingPrice   *float64           `json:"extra_waiting_price"`
			Description         string             `json:"description"`
			Active              *bool              `json:"active"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат данных: " + err.Error()})
			return
		}

		var airportZone models.GeographicZone
		if err := db.First(&airportZone, "id = ?", req.AirportZoneID).Error; err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Зона аэропорта не найдена"})
			return
		}
		if airportZone.ZoneType != models.ZoneTypeAirport {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Пакет можно привязать только к зоне аэропорта"})
			return
		}

		pkg := models.AirportPackage{
			PackageName:         req.PackageName,
			AirportZoneID:       req.AirportZoneID,
			DestinationZoneID:   req.DestinationZoneID,
			VehicleType:         req.VehicleType,
			FlatRate:            req.FlatRate,
			IncludedWaitingTime: req.IncludedWaitingTime,
			ExtraWaitingPrice:   req.ExtraWaitingPrice,
			Description:         req.Description,
			Active:              true,
		}
		if req.Active != nil {
			pkg.Active = *req.Active
		}

		if err := db.Create(&pkg).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при создании пакета"})
			return
		}

		pricing.InvalidateCache(c.Request.Context())
		c.JSON(http.StatusCreated, pkg)
	}
}

// Обновление пакета аэропорта
func AirportPackageUpdate(db *gorm.DB, pricing *services.PricingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var pkg models.AirportPackage
		if err := db.First(&pkg, "id = ?", c.Param("id")).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Пакет не найден"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при получении пакета"})
			return
		}

		var req struct {
			PackageName         *string  `json:"package_name"`
			FlatRate            *float64 `json:"flat_rate"`
			IncludedWaitingTime *int     `json:"included_waiting_time"`
			ExtraWaitingPrice   *float64 `json:"extra_waiting_price"`
			Description         *string  `json:"description"`
			Active              *bool    `json:"active"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат данных"})
			return
		}

		updates := map[string]interface{}{}
		if req.PackageName != nil {
			updates["package_name"] = *req.PackageName
		}
		if req.FlatRate != nil {
			updates["flat_rate"] = *req.FlatRate
		}
		if req.IncludedWaitingTime != nil {
			updates["included_waiting_time"] = *req.IncludedWaitingTime
		}
		if req.ExtraWaitingPrice != nil {
			updates["extra_waiting_price"] = *req.ExtraWaitingPrice
		}
		if req.Description != nil {
			updates["description"] = *req.Description
		}
		if req.Active != nil {
			updates["active"] = *req.Active
		}

		if len(updates) > 0 {
			if err := db.Model(&pkg).Updates(updates).Error; err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при обновлении пакета"})
				return
			}
			pricing.InvalidateCache(c.Request.Context())
		}

		db.First(&pkg, "id = ?", pkg.ID)
		c.JSON(http.StatusOK, pkg)
	}
}

// Удаление пакета аэропорта
func AirportPackageDelete(db *gorm.DB, pricing *services.PricingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		result := db.Delete(&models.AirportPackage{}, "id = ?", c.Param("id"))
		if result.Error != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при удалении пакета"})
			return
		}
		if result.RowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Пакет не найден"})
			return
		}

		pricing.InvalidateCache(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"message": "Пакет удален"})
	}
}
