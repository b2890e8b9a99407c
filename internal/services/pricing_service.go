package services

import (
	"context"
	"errors"
	"log"
	"math"

	"gorm.io/gorm"

	"vtc-dispatch/internal/config"
	"vtc-dispatch/internal/models"
)

// Quote — рассчитанная стоимость поездки с разбивкой на долю водителя
// и комиссию платформы
type Quote struct {
	Amount       float64 `json:"amount"`
	DriverAmount float64 `json:"driver_amount"`
	Commission   float64 `json:"commission"`
	Source       string  `json:"source"` // "airport_package" или "pricing_rule"
}

// PricingService рассчитывает стоимость поездки по зонам и типу автомобиля.
// Порядок поиска: сначала активный пакет аэропорта (точное направление имеет
// приоритет над пакетом "любое направление"), затем активный тариф.
// Обратное направление не проверяется.
type PricingService struct {
	db    *gorm.DB
	cfg   *config.Config
	cache *QuoteCache
}

func NewPricingService(db *gorm.DB, cfg *config.Config, cache *QuoteCache) *PricingService {
	return &PricingService{
		db:    db,
		cfg:   cfg,
		cache: cache,
	}
}

// Resolve возвращает стоимость для маршрута или NoPriceError,
// если ни пакет, ни тариф не подходят
func (s *PricingService) Resolve(ctx context.Context, pickupZoneID, destinationZoneID string, vehicleType models.VehicleType) (*Quote, error) {
	var quote Quote

	cacheKey := ""
	if s.cache != nil {
		cacheKey = s.cache.GenerateQuoteKey(pickupZoneID, destinationZoneID, vehicleType)
		if found, err := s.cache.Get(ctx, cacheKey, &quote); err != nil {
			log.Printf("Ошибка чтения кэша расчетов: %v", err)
		} else if found {
			return &quote, nil
		}
	}

	// 1. Пакет аэропорта: точка подачи — зона аэропорта, направление
	// совпадает либо не задано ("любое направление")
	var pkg models.AirportPackage
	err := s.db.WithContext(ctx).
		Where("airport_zone_id = ? AND vehicle_type = ? AND active = ?", pickupZoneID, vehicleType, true).
		Where("destination_zone_id = ? OR destination_zone_id IS NULL", destinationZoneID).
		Order("destination_zone_id IS NULL").
		First(&pkg).Error
	if err == nil {
		quote = s.split(pkg.FlatRate, "airport_package")
		s.storeInCache(ctx, cacheKey, &quote)
		return &quote, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// 2. Обычный тариф для пары зон
	var rule models.PricingRule
	err = s.db.WithContext(ctx).
		Where("zone_from_id = ? AND zone_to_id = ? AND vehicle_type = ? AND active = ?",
			pickupZoneID, destinationZoneID, vehicleType, true).
		First(&rule).Error
	if err == nil {
		quote = s.split(rule.BasePrice, "pricing_rule")
		s.storeInCache(ctx, cacheKey, &quote)
		return &quote, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	return nil, &NoPriceError{
		ZoneFromID:  pickupZoneID,
		ZoneToID:    destinationZoneID,
		VehicleType: vehicleType,
	}
}

// InvalidateCache сбрасывает кэш расчетов после изменения зон и тарифов
func (s *PricingService) InvalidateCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		log.Printf("Ошибка инвалидации кэша расчетов: %v", err)
	}
}

// split делит сумму заказа на долю водителя и комиссию платформы.
// Инвариант: amount == driver_amount + commission с точностью до копейки.
func (s *PricingService) split(amount float64, source string) Quote {
	commission := round2(amount * s.cfg.CommissionRate)
	return Quote{
		Amount:       round2(amount),
		DriverAmount: round2(amount - commission),
		Commission:   commission,
		Source:       source,
	}
}

func (s *PricingService) storeInCache(ctx context.Context, key string, quote *Quote) {
	if s.cache == nil || key == "" {
		return
	}
	if err := s.cache.Set(ctx, key, quote); err != nil {
		log.Printf("Ошибка записи в кэш расчетов: %v", err)
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
