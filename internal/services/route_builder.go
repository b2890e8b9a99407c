package services

import (
	"context"
	"fmt"
	"math"

	"gorm.io/gorm"

	"vtc-dispatch/internal/models"
)

// RouteBuilder восстанавливает маршрут завершенной поездки по координатам
// зон подачи и назначения. Настоящий GPS-трек не ведется, поэтому маршрут
// синтезируется интерполяцией между конечными точками.
type RouteBuilder struct {
	db *gorm.DB
}

func NewRouteBuilder(db *gorm.DB) *RouteBuilder {
	return &RouteBuilder{db: db}
}

// Build возвращает маршрут и оценки расстояния/длительности для пары
// адресов. Если зоны по адресам не находятся, возвращается пустой маршрут.
func (b *RouteBuilder) Build(ctx context.Context, pickupAddress, destination string) (models.Route, string, string) {
	from, okFrom := b.lookupZone(ctx, pickupAddress)
	to, okTo := b.lookupZone(ctx, destination)
	if !okFrom || !okTo {
		return nil, "", ""
	}

	// Четыре промежуточные точки, как в истории поездки клиента
	const steps = 4
	route := make(models.Route, 0, steps)
	for i := 0; i < steps; i++ {
		t := float64(i) / float64(steps-1)
		route = append(route, models.RoutePoint{
			Lat: from.Coordinates.Lat + (to.Coordinates.Lat-from.Coordinates.Lat)*t,
			Lng: from.Coordinates.Lng + (to.Coordinates.Lng-from.Coordinates.Lng)*t,
		})
	}

	distanceKm := haversineKm(from.Coordinates, to.Coordinates)
	// Средняя скорость по городу около 40 км/ч
	durationMin := int(math.Ceil(distanceKm / 40.0 * 60.0))

	return route, fmt.Sprintf("%.1f km", distanceKm), fmt.Sprintf("%d min", durationMin)
}

func (b *RouteBuilder) lookupZone(ctx context.Context, name string) (*models.GeographicZone, bool) {
	var zone models.GeographicZone
	if err := b.db.WithContext(ctx).Where("name = ?", name).First(&zone).Error; err != nil {
		return nil, false
	}
	if zone.Coordinates.Lat == 0 && zone.Coordinates.Lng == 0 {
		return nil, false
	}
	return &zone, true
}

// haversineKm — расстояние между двумя точками по сфере, в километрах
func haversineKm(from, to models.Coordinates) float64 {
	const earthRadiusKm = 6371.0

	φ1 := from.Lat * math.Pi / 180
	φ2 := to.Lat * math.Pi / 180
	dφ := (to.Lat - from.Lat) * math.Pi / 180
	dλ := (to.Lng - from.Lng) * math.Pi / 180

	a := math.Sin(dφ/2)*math.Sin(dφ/2) +
		math.Cos(φ1)*math.Cos(φ2)*math.Sin(dλ/2)*math.Sin(dλ/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}
