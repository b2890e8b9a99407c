package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal - общее количество запросов
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Общее количество HTTP запросов",
		},
		[]string{"method", "endpoint", "status"},
	)

	// RequestDuration - длительность запросов
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Длительность HTTP запросов в секундах",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// RequestsInFlight - количество запросов в обработке
	RequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Текущее количество запросов в обработке",
		},
	)

	// ReservationTransitionsTotal - переходы статусов заказов
	ReservationTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reservation_transitions_total",
			Help: "Количество переходов статусов заказов по результату",
		},
		[]string{"target_status", "result"},
	)

	// AccountingEntriesTotal - созданные бухгалтерские проводки
	AccountingEntriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "accounting_entries_total",
			Help: "Количество автоматически созданных бухгалтерских проводок",
		},
		[]string{"transaction_type"},
	)

	// NotificationsTotal - отправленные уведомления
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Количество отправленных уведомлений по каналу и результату",
		},
		[]string{"channel", "status"},
	)
)

// PrometheusMiddleware собирает метрики для HTTP запросов
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		RequestsInFlight.Inc()
		defer RequestsInFlight.Dec()

		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()

		status := strconv.Itoa(c.Writer.Status())
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unknown"
		}

		RequestsTotal.WithLabelValues(c.Request.Method, endpoint, status).Inc()
		RequestDuration.WithLabelValues(c.Request.Method, endpoint).Observe(duration)
	}
}

// TrackTransition отслеживает попытку перехода статуса заказа
func TrackTransition(targetStatus string, result string) {
	ReservationTransitionsTotal.WithLabelValues(targetStatus, result).Inc()
}

// TrackAccountingEntry отслеживает создание бухгалтерской проводки
func TrackAccountingEntry(transactionType string) {
	AccountingEntriesTotal.WithLabelValues(transactionType).Inc()
}

// TrackNotification отслеживает отправку уведомления
func TrackNotification(channel string, status string) {
	NotificationsTotal.WithLabelValues(channel, status).Inc()
}
