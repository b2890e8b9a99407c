package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"vtc-dispatch/internal/models"
)

func createTestZone(t *testing.T, db *gorm.DB, name string, zoneType models.ZoneType) *models.GeographicZone {
	t.Helper()

	zone := models.GeographicZone{
		Name:        name,
		ZoneType:    zoneType,
		Coordinates: models.Coordinates{Lat: 48.85, Lng: 2.35},
		Active:      true,
	}
	require.NoError(t, db.Create(&zone).Error)
	return &zone
}

func TestResolveUsesPricingRule(t *testing.T) {
	db := newTestDB(t)
	svc := NewPricingService(db, testConfig(), nil)
	ctx := context.Background()

	from := createTestZone(t, db, "Paris Centre", models.ZoneTypeCity)
	to := createTestZone(t, db, "Versailles", models.ZoneTypeCity)

	require.NoError(t, db.Create(&models.PricingRule{
		Name:        "Paris - Versailles berline",
		ZoneFromID:  from.ID,
		ZoneToID:    to.ID,
		VehicleType: models.VehicleTypeBerline,
		BasePrice:   80,
		IsFlatRate:  true,
		Active:      true,
	}).Error)

	quote, err := svc.Resolve(ctx, from.ID, to.ID, models.VehicleTypeBerline)
	require.NoError(t, err)
	assert.Equal(t, "pricing_rule", quote.Source)
	assert.Equal(t, 80.0, quote.Amount)
	assert.Equal(t, 24.0, quote.Commission)
	assert.Equal(t, 56.0, quote.DriverAmount)
	assert.Equal(t, quote.Amount, quote.DriverAmount+quote.Commission)
}

func TestResolvePackageTakesPrecedenceOverRule(t *testing.T) {
	db := newTestDB(t)
	svc := NewPricingService(db, testConfig(), nil)
	ctx := context.Background()

	airport := createTestZone(t, db, "Aéroport CDG", models.ZoneTypeAirport)
	city := createTestZone(t, db, "Paris Centre", models.ZoneTypeCity)

	require.NoError(t, db.Create(&models.PricingRule{
		Name:        "CDG - Paris berline",
		ZoneFromID:  airport.ID,
		ZoneToID:    city.ID,
		VehicleType: models.VehicleTypeBerline,
		BasePrice:   90,
		Active:      true,
	}).Error)
	require.NoError(t, db.Create(&models.AirportPackage{
		PackageName:       "CDG - Paris forfait",
		AirportZoneID:     airport.ID,
		DestinationZoneID: &city.ID,
		VehicleType:       models.VehicleTypeBerline,
		FlatRate:          120,
		Active:            true,
	}).Error)

	quote, err := svc.Resolve(ctx, airport.ID, city.ID, models.VehicleTypeBerline)
	require.NoError(t, err)
	assert.Equal(t, "airport_package", quote.Source)
	assert.Equal(t, 120.0, quote.Amount)
}

func TestResolveExactDestinationBeatsAnyDestination(t *testing.T) {
	db := newTestDB(t)
	svc := NewPricingService(db, testConfig(), nil)
	ctx := context.Background()

	airport := createTestZone(t, db, "Aéroport Orly", models.ZoneTypeAirport)
	city := createTestZone(t, db, "Paris Centre", models.ZoneTypeCity)

	// Пакет "любое направление" и пакет точного направления
	require.NoError(t, db.Create(&models.AirportPackage{
		PackageName:   "Orly toutes destinations",
		AirportZoneID: airport.ID,
		VehicleType:   models.VehicleTypeStandard,
		FlatRate:      150,
		Active:        true,
	}).Error)
	require.NoError(t, db.Create(&models.AirportPackage{
		PackageName:       "Orly - Paris",
		AirportZoneID:     airport.ID,
		DestinationZoneID: &city.ID,
		VehicleType:       models.VehicleTypeStandard,
		FlatRate:          100,
		Active:            true,
	}).Error)

	quote, err := svc.Resolve(ctx, airport.ID, city.ID, models.VehicleTypeStandard)
	require.NoError(t, err)
	assert.Equal(t, 100.0, quote.Amount)
}

func TestResolveAnyDestinationPackage(t *testing.T) {
	db := newTestDB(t)
	svc := NewPricingService(db, testConfig(), nil)
	ctx := context.Background()

	airport := createTestZone(t, db, "Aéroport CDG", models.ZoneTypeAirport)
	suburb := createTestZone(t, db, "Banlieue", models.ZoneTypeDistrict)

	require.NoError(t, db.Create(&models.AirportPackage{
		PackageName:   "CDG toutes destinations",
		AirportZoneID: airport.ID,
		VehicleType:   models.VehicleTypeVan,
		FlatRate:      180,
		Active:        true,
	}).Error)

	quote, err := svc.Resolve(ctx, airport.ID, suburb.ID, models.VehicleTypeVan)
	require.NoError(t, err)
	assert.Equal(t, "airport_package", quote.Source)
	assert.Equal(t, 180.0, quote.Amount)
}

func TestInactiveFlagsPersistOnCreate(t *testing.T) {
	db := newTestDB(t)

	airport := createTestZone(t, db, "Aéroport CDG", models.ZoneTypeAirport)
	city := createTestZone(t, db, "Paris Centre", models.ZoneTypeCity)

	// Явный false должен сохраниться как false, а не замениться
	// значением по умолчанию
	zone := models.GeographicZone{
		Name:        "Zone fermée",
		ZoneType:    models.ZoneTypeDistrict,
		Coordinates: models.Coordinates{Lat: 48.9, Lng: 2.4},
		Active:      false,
	}
	require.NoError(t, db.Create(&zone).Error)

	rule := models.PricingRule{
		Name:        "Tarif désactivé",
		ZoneFromID:  airport.ID,
		ZoneToID:    city.ID,
		VehicleType: models.VehicleTypeStandard,
		BasePrice:   50,
		IsFlatRate:  false,
		Active:      false,
	}
	require.NoError(t, db.Create(&rule).Error)

	pkg := models.AirportPackage{
		PackageName:   "Forfait désactivé",
		AirportZoneID: airport.ID,
		VehicleType:   models.VehicleTypeStandard,
		FlatRate:      120,
		Active:        false,
	}
	require.NoError(t, db.Create(&pkg).Error)

	var storedZone models.GeographicZone
	require.NoError(t, db.First(&storedZone, "id = ?", zone.ID).Error)
	assert.False(t, storedZone.Active)

	var storedRule models.PricingRule
	require.NoError(t, db.First(&storedRule, "id = ?", rule.ID).Error)
	assert.False(t, storedRule.Active)
	assert.False(t, storedRule.IsFlatRate)

	var storedPkg models.AirportPackage
	require.NoError(t, db.First(&storedPkg, "id = ?", pkg.ID).Error)
	assert.False(t, storedPkg.Active)
}

func TestResolveSkipsInactiveEntries(t *testing.T) {
	db := newTestDB(t)
	svc := NewPricingService(db, testConfig(), nil)
	ctx := context.Background()

	airport := createTestZone(t, db, "Aéroport CDG", models.ZoneTypeAirport)
	city := createTestZone(t, db, "Paris Centre", models.ZoneTypeCity)

	require.NoError(t, db.Create(&models.AirportPackage{
		PackageName:       "Forfait désactivé",
		AirportZoneID:     airport.ID,
		DestinationZoneID: &city.ID,
		VehicleType:       models.VehicleTypeBerline,
		FlatRate:          120,
		Active:            false,
	}).Error)
	require.NoError(t, db.Create(&models.PricingRule{
		Name:        "CDG - Paris berline",
		ZoneFromID:  airport.ID,
		ZoneToID:    city.ID,
		VehicleType: models.VehicleTypeBerline,
		BasePrice:   90,
		Active:      true,
	}).Error)

	quote, err := svc.Resolve(ctx, airport.ID, city.ID, models.VehicleTypeBerline)
	require.NoError(t, err)
	assert.Equal(t, "pricing_rule", quote.Source)
	assert.Equal(t, 90.0, quote.Amount)
}

func TestResolveNoReverseFallback(t *testing.T) {
	db := newTestDB(t)
	svc := NewPricingService(db, testConfig(), nil)
	ctx := context.Background()

	from := createTestZone(t, db, "Paris Centre", models.ZoneTypeCity)
	to := createTestZone(t, db, "Versailles", models.ZoneTypeCity)

	require.NoError(t, db.Create(&models.PricingRule{
		Name:        "Paris - Versailles",
		ZoneFromID:  from.ID,
		ZoneToID:    to.ID,
		VehicleType: models.VehicleTypeStandard,
		BasePrice:   60,
		Active:      true,
	}).Error)

	// Обратное направление требует собственного тарифа
	_, err := svc.Resolve(ctx, to.ID, from.ID, models.VehicleTypeStandard)
	var noPrice *NoPriceError
	require.ErrorAs(t, err, &noPrice)
	assert.Equal(t, to.ID, noPrice.ZoneFromID)
	assert.Equal(t, from.ID, noPrice.ZoneToID)
}

func TestResolveNoPriceForUnknownVehicleType(t *testing.T) {
	db := newTestDB(t)
	svc := NewPricingService(db, testConfig(), nil)
	ctx := context.Background()

	from := createTestZone(t, db, "Paris Centre", models.ZoneTypeCity)
	to := createTestZone(t, db, "Versailles", models.ZoneTypeCity)

	require.NoError(t, db.Create(&models.PricingRule{
		Name:        "Paris - Versailles standard",
		ZoneFromID:  from.ID,
		ZoneToID:    to.ID,
		VehicleType: models.VehicleTypeStandard,
		BasePrice:   60,
		Active:      true,
	}).Error)

	_, err := svc.Resolve(ctx, from.ID, to.ID, models.VehicleTypeFirstClass)
	var noPrice *NoPriceError
	assert.ErrorAs(t, err, &noPrice)
}
