package config

import (
	"os"
	"strconv"
	"time"
)

// Config собирает настройки доменной логики, которые раньше были
// разбросаны по коду в виде констант. Тестовая и боевая конфигурации
// различаются только значениями переменных окружения.
type Config struct {
	// Окно перед запланированным временем подачи, в пределах которого
	// водителю разрешено начать поездку
	RideStartWindow time.Duration

	// Доля комиссии платформы от суммы заказа
	CommissionRate float64

	// Интервал фоновой сверки бухгалтерских проводок
	ReconcileInterval time.Duration

	// Кэширование расчетов стоимости
	CacheEnabled  bool
	QuoteCacheTTL time.Duration
}

func Load() *Config {
	cfg := &Config{
		RideStartWindow:   2 * time.Hour,
		CommissionRate:    0.30,
		ReconcileInterval: 15 * time.Minute,
		CacheEnabled:      os.Getenv("CACHE_ENABLED") == "true",
		QuoteCacheTTL:     time.Hour,
	}

	if val, err := strconv.Atoi(os.Getenv("RIDE_START_WINDOW_SECONDS")); err == nil && val > 0 {
		cfg.RideStartWindow = time.Duration(val) * time.Second
	}

	if val, err := strconv.ParseFloat(os.Getenv("COMMISSION_RATE"), 64); err == nil && val >= 0 && val < 1 {
		cfg.CommissionRate = val
	}

	if val, err := strconv.Atoi(os.Getenv("RECONCILE_INTERVAL_MINUTES")); err == nil && val > 0 {
		cfg.ReconcileInterval = time.Duration(val) * time.Minute
	}

	if val, err := strconv.Atoi(os.Getenv("QUOTE_CACHE_TTL_SECONDS")); err == nil && val > 0 {
		cfg.QuoteCacheTTL = time.Duration(val) * time.Second
	}

	return cfg
}
