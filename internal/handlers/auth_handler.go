package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"vtc-dispatch/internal/models"
	"vtc-dispatch/internal/utils"
)

// AuthResponse содержит токен и данные пользователя после аутентификации
type AuthResponse struct {
	Token string                 `json:"token"`
	User  models.ProfileResponse `json:"user"`
}

// Регистрация водителя. Новый профиль получает роль driver и проходит
// проверку документов перед допуском к заказам.
func Register(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			FullName string `json:"full_name" binding:"required"`
			Email    string `json:"email" binding:"required,email"`
			Password string `json:"password" binding:"required,min=8"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат данных: " + err.Error()})
			return
		}

		email := strings.ToLower(strings.TrimSpace(req.Email))

		var count int64
		if err := db.Model(&models.Profile{}).Where("email = ?", email).Count(&count).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при проверке пользователя"})
			return
		}
		if count > 0 {
			c.JSON(http.StatusConflict, gin.H{"error": "Пользователь с таким email уже существует"})
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при создании пользователя"})
			return
		}

		profile := models.Profile{
			FullName:     req.FullName,
			Email:        email,
			PasswordHash: string(hash),
			Status:       models.ProfileStatusActive,
		}

		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&profile).Error; err != nil {
				return err
			}
			return tx.Create(&models.UserRole{UserID: profile.ID, Role: models.RoleDriver}).Error
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при создании пользователя"})
			return
		}

		token, err := utils.GenerateJWT(profile.ID, string(models.RoleDriver))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при создании токена"})
			return
		}

		c.JSON(http.StatusCreated, AuthResponse{
			Token: token,
			User:  toProfileResponse(db, &profile),
		})
	}
}

// Вход по email и паролю
func Login(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Email    string `json:"email" binding:"required"`
			Password string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат данных"})
			return
		}

		email := strings.ToLower(strings.TrimSpace(req.Email))

		var profile models.Profile
		if err := db.First(&profile, "email = ?", email).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Неверный email или пароль"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при входе"})
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(profile.PasswordHash), []byte(req.Password)); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Неверный email или пароль"})
			return
		}

		if profile.Status != models.ProfileStatusActive {
			c.JSON(http.StatusForbidden, gin.H{"error": "Учетная запись деактивирована"})
			return
		}

		role := primaryRole(db, profile.ID)
		token, err := utils.GenerateJWT(profile.ID, string(role))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при создании токена"})
			return
		}

		c.JSON(http.StatusOK, AuthResponse{
			Token: token,
			User:  toProfileResponse(db, &profile),
		})
	}
}

func primaryRole(db *gorm.DB, userID string) models.AppRole {
	var roles []models.AppRole
	db.Model(&models.UserRole{}).Where("user_id = ?", userID).Pluck("role", &roles)
	for _, r := range roles {
		if r == models.RoleAdmin {
			return models.RoleAdmin
		}
	}
	if len(roles) > 0 {
		return roles[0]
	}
	return models.RoleDriver
}

func toProfileResponse(db *gorm.DB, profile *models.Profile) models.ProfileResponse {
	var roles []models.AppRole
	db.Model(&models.UserRole{}).Where("user_id = ?", profile.ID).Pluck("role", &roles)

	return models.ProfileResponse{
		ID:        profile.ID,
		FullName:  profile.FullName,
		Email:     profile.Email,
		FCMToken:  profile.FCMToken,
		AvatarUrl: profile.AvatarUrl,
		Status:    profile.Status,
		Roles:     roles,
		CreatedAt: profile.CreatedAt,
	}
}
