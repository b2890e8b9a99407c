package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"vtc-dispatch/internal/config"
	"vtc-dispatch/internal/handlers"
	"vtc-dispatch/internal/middleware"
	"vtc-dispatch/internal/services"
	"vtc-dispatch/internal/websocket"
)

// Deps — зависимости, разделяемые обработчиками
type Deps struct {
	DB           *gorm.DB
	Cfg          *config.Config
	Reservations *services.ReservationService
	Pricing      *services.PricingService
	Accounting   *services.AccountingService
	Firebase     *services.FirebaseService
}

func SetupRoutes(api *gin.RouterGroup, deps Deps) {
	// Публичные маршруты для аутентификации
	auth := api.Group("/auth")
	{
		auth.POST("/register", handlers.Register(deps.DB))
		auth.POST("/login", handlers.Login(deps.DB))
	}

	// Публичные маршруты для веб-бронирования
	booking := api.Group("/booking")
	{
		booking.GET("/zones", handlers.BookingListZones(deps.DB))
		booking.POST("/quote", handlers.BookingQuote(deps.Pricing))
		booking.POST("", handlers.BookingCreate(deps.DB, deps.Pricing, deps.Reservations))
	}

	// Защищенные маршруты (требуют аутентификации)
	protected := api.Group("")
	protected.Use(middleware.JWTAuth())
	{
		// Профиль текущего пользователя
		protected.GET("/user", handlers.GetCurrentUser(deps.DB))
		protected.PUT("/profile", handlers.UpdateProfile(deps.DB))
		protected.PUT("/fcm-token", handlers.UpdateFCMToken(deps.DB))

		// Роуты для документов водителя
		protected.POST("/driver/documents", handlers.DriverDocumentsSubmit(deps.DB))
		protected.GET("/driver/documents", handlers.DriverDocumentsGet(deps.DB))
		protected.DELETE("/driver/documents/:id", handlers.DriverDocumentsDelete(deps.DB))

		// Роуты для заказов
		protected.POST("/reservations", handlers.ReservationCreate(deps.DB, deps.Cfg, deps.Reservations))
		protected.GET("/reservations", handlers.ReservationList(deps.DB))
		protected.GET("/reservations/:id", handlers.ReservationGetByID(deps.DB))
		protected.PUT("/reservations/:id", handlers.ReservationUpdate(deps.DB))

		// Переходы жизненного цикла заказа
		protected.PUT("/reservations/:id/accept", handlers.ReservationAccept(deps.Reservations))
		protected.PUT("/reservations/:id/reject", handlers.ReservationReject(deps.Reservations))
		protected.PUT("/reservations/:id/start", handlers.ReservationStart(deps.Reservations))
		protected.PUT("/reservations/:id/arrive", handlers.ReservationArrive(deps.Reservations))
		protected.PUT("/reservations/:id/board", handlers.ReservationBoard(deps.Reservations))
		protected.PUT("/reservations/:id/complete", handlers.ReservationComplete(deps.Reservations))
		protected.PUT("/reservations/:id/status", handlers.ReservationSetStatus(deps.Reservations))

		// WebSocket подключение для получения обновлений в реальном времени
		protected.GET("/ws", websocket.Handler(deps.DB))

		// Административные маршруты
		admin := protected.Group("/admin")
		admin.Use(middleware.RequireAdmin())
		{
			// Географические зоны
			admin.GET("/zones", handlers.ZoneList(deps.DB))
			admin.POST("/zones", handlers.ZoneCreate(deps.DB, deps.Pricing))
			admin.PUT("/zones/:id", handlers.ZoneUpdate(deps.DB, deps.Pricing))
			admin.DELETE("/zones/:id", handlers.ZoneDelete(deps.DB, deps.Pricing))

			// Тарифы
			admin.GET("/pricing-rules", handlers.PricingRuleList(deps.DB))
			admin.POST("/pricing-rules", handlers.PricingRuleCreate(deps.DB, deps.Pricing))
			admin.PUT("/pricing-rules/:id", handlers.PricingRuleUpdate(deps.DB, deps.Pricing))
			admin.DELETE("/pricing-rules/:id", handlers.PricingRuleDelete(deps.DB, deps.Pricing))

			// Пакеты аэропортов
			admin.GET("/airport-packages", handlers.AirportPackageList(deps.DB))
			admin.POST("/airport-packages", handlers.AirportPackageCreate(deps.DB, deps.Pricing))
			admin.PUT("/airport-packages/:id", handlers.AirportPackageUpdate(deps.DB, deps.Pricing))
			admin.DELETE("/airport-packages/:id", handlers.AirportPackageDelete(deps.DB, deps.Pricing))

			// Бухгалтерия
			admin.GET("/accounting", handlers.AccountingList(deps.DB))
			admin.POST("/accounting/expenses", handlers.AccountingCreateExpense(deps.DB))
			admin.PUT("/accounting/:id", handlers.AccountingUpdate(deps.DB))
			admin.DELETE("/accounting/:id", handlers.AccountingDelete(deps.DB))
			admin.GET("/accounting/summary", handlers.AccountingGetSummary(deps.Accounting))
			admin.POST("/accounting/reconcile", handlers.AccountingReconcile(deps.Accounting))

			// Модерация документов водителей
			admin.GET("/driver-documents", handlers.DriverDocumentsListPending(deps.DB))
			admin.PUT("/driver-documents/:id/status", handlers.DriverDocumentsUpdateStatus(deps.DB, deps.Firebase))
		}
	}
}
