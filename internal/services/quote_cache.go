package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"vtc-dispatch/internal/models"
)

// QuoteCache кэширует результаты расчета стоимости в Redis.
// При недоступном Redis кэш отключается и расчеты идут напрямую в БД.
type QuoteCache struct {
	redisClient *redis.Client
	ttl         time.Duration
	enabled     bool
}

// NewQuoteCache создает кэш расчетов стоимости
func NewQuoteCache(client *redis.Client, ttl time.Duration, enabled bool) *QuoteCache {
	if client == nil {
		enabled = false
	}
	return &QuoteCache{
		redisClient: client,
		ttl:         ttl,
		enabled:     enabled,
	}
}

// Get получает расчет из кэша
func (c *QuoteCache) Get(ctx context.Context, key string, result interface{}) (bool, error) {
	if !c.enabled {
		return false, nil
	}

	val, err := c.redisClient.Get(ctx, key).Result()
	if err == redis.Nil {
		// Ключ не найден в кэше
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("ошибка при получении данных из кэша: %w", err)
	}

	if err := json.Unmarshal([]byte(val), result); err != nil {
		return false, fmt.Errorf("ошибка при десериализации данных из кэша: %w", err)
	}

	return true, nil
}

// Set сохраняет расчет в кэш
func (c *QuoteCache) Set(ctx context.Context, key string, value interface{}) error {
	if !c.enabled {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("ошибка при сериализации данных для кэша: %w", err)
	}

	if err := c.redisClient.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("ошибка при сохранении данных в кэш: %w", err)
	}

	return nil
}

// Invalidate удаляет все закэшированные расчеты. Вызывается при
// изменении зон, тарифов или пакетов.
func (c *QuoteCache) Invalidate(ctx context.Context) error {
	if !c.enabled {
		return nil
	}

	iter := c.redisClient.Scan(ctx, 0, "quote:*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.redisClient.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("ошибка при инвалидации кэша: %w", err)
		}
	}
	return iter.Err()
}

// GenerateQuoteKey генерирует ключ кэша для расчета стоимости
func (c *QuoteCache) GenerateQuoteKey(pickupZoneID, destinationZoneID string, vehicleType models.VehicleType) string {
	return fmt.Sprintf("quote:%s:%s:%s", pickupZoneID, destinationZoneID, vehicleType)
}
