package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"vtc-dispatch/internal/config"
	"vtc-dispatch/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.Profile{},
		&models.UserRole{},
		&models.DriverDocument{},
		&models.GeographicZone{},
		&models.PricingRule{},
		&models.AirportPackage{},
		&models.Reservation{},
		&models.AccountingTransaction{},
	))
	return db
}

func testConfig() *config.Config {
	return &config.Config{
		RideStartWindow:   2 * time.Hour,
		CommissionRate:    0.30,
		ReconcileInterval: 15 * time.Minute,
	}
}

func newTestReservationService(db *gorm.DB, cfg *config.Config) *ReservationService {
	return NewReservationService(db, cfg, NewAccountingService(db), nil, nil)
}

func createEligibleDriver(t *testing.T, db *gorm.DB) *models.Profile {
	t.Helper()

	driver := models.Profile{
		FullName:     "Jean Martin",
		Email:        fmt.Sprintf("driver-%s@example.com", t.Name()),
		PasswordHash: "hash",
		Status:       models.ProfileStatusActive,
	}
	require.NoError(t, db.Create(&driver).Error)
	require.NoError(t, db.Create(&models.UserRole{UserID: driver.ID, Role: models.RoleDriver}).Error)
	require.NoError(t, db.Create(&models.DriverDocument{
		UserID:       driver.ID,
		DocumentType: "license",
		DocumentName: "Permis de conduire",
		DocumentUrl:  "https://example.com/license.pdf",
		Status:       models.DocumentStatusApproved,
	}).Error)
	return &driver
}

func createTestReservation(t *testing.T, db *gorm.DB, date time.Time) *models.Reservation {
	t.Helper()

	reservation := models.Reservation{
		ClientName:    "Pierre Dupont",
		PickupAddress: "Aéroport CDG",
		Destination:   "Paris Centre",
		Phone:         "+33612345678",
		Date:          date,
		Dispatcher:    "Central",
		Passengers:    2,
		VehicleType:   models.VehicleTypeBerline,
		PaymentType:   models.PaymentTypeCard,
		Status:        models.ReservationStatusPending,
		Amount:        100,
		DriverAmount:  70,
		Commission:    30,
	}
	require.NoError(t, db.Create(&reservation).Error)
	return &reservation
}

func TestReservationLifecycle(t *testing.T) {
	db := newTestDB(t)
	svc := newTestReservationService(db, testConfig())
	ctx := context.Background()

	driver := createEligibleDriver(t, db)
	reservation := createTestReservation(t, db, time.Now())

	updated, err := svc.Accept(ctx, reservation.ID, driver.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationStatusAccepted, updated.Status)
	require.NotNil(t, updated.DriverID)
	assert.Equal(t, driver.ID, *updated.DriverID)

	updated, err = svc.Start(ctx, reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationStatusStarted, updated.Status)
	assert.NotNil(t, updated.ActualPickupTime)

	updated, err = svc.Arrive(ctx, reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationStatusArrived, updated.Status)

	updated, err = svc.Board(ctx, reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationStatusOnBoard, updated.Status)

	updated, err = svc.Complete(ctx, reservation.ID, CompletionData{Rating: 5, Comment: "Très bon service"})
	require.NoError(t, err)
	assert.Equal(t, models.ReservationStatusCompleted, updated.Status)
	require.NotNil(t, updated.DropoffTime)
	require.NotNil(t, updated.Rating)
	assert.Equal(t, 5, *updated.Rating)
	assert.Equal(t, "Très bon service", updated.Comment)

	var entries []models.AccountingTransaction
	require.NoError(t, db.Where("reservation_id = ?", reservation.ID).Order("transaction_type DESC").Find(&entries).Error)
	require.Len(t, entries, 2)

	var revenue, commission *models.AccountingTransaction
	for i := range entries {
		switch entries[i].TransactionType {
		case models.TransactionTypeRevenue:
			revenue = &entries[i]
		case models.TransactionTypeCommission:
			commission = &entries[i]
		}
	}
	require.NotNil(t, revenue)
	require.NotNil(t, commission)

	assert.Equal(t, 100.0, revenue.Amount)
	assert.Equal(t, models.AccountingCategoryRideIncome, revenue.Category)
	assert.Equal(t, "Revenu de la course: Pierre Dupont", revenue.Description)
	assert.Equal(t, models.TransactionPaymentCompleted, revenue.PaymentStatus)
	assert.WithinDuration(t, *updated.DropoffTime, revenue.TransactionDate, time.Second)

	assert.Equal(t, 30.0, commission.Amount)
	assert.Equal(t, models.AccountingCategoryPlatformFee, commission.Category)
	assert.Equal(t, "Commission plateforme: Pierre Dupont", commission.Description)
}

func TestAcceptRequiresEligibleDriver(t *testing.T) {
	db := newTestDB(t)
	svc := newTestReservationService(db, testConfig())
	ctx := context.Background()

	// Водитель без принятых документов
	driver := models.Profile{
		FullName:     "Nouveau Chauffeur",
		Email:        "new-driver@example.com",
		PasswordHash: "hash",
		Status:       models.ProfileStatusActive,
	}
	require.NoError(t, db.Create(&driver).Error)
	require.NoError(t, db.Create(&models.UserRole{UserID: driver.ID, Role: models.RoleDriver}).Error)

	reservation := createTestReservation(t, db, time.Now())

	_, err := svc.Accept(ctx, reservation.ID, driver.ID)
	assert.ErrorIs(t, err, ErrDriverNotEligible)

	var current models.Reservation
	require.NoError(t, db.First(&current, "id = ?", reservation.ID).Error)
	assert.Equal(t, models.ReservationStatusPending, current.Status)
}

func TestInvalidTransitionRejected(t *testing.T) {
	db := newTestDB(t)
	svc := newTestReservationService(db, testConfig())
	ctx := context.Background()

	reservation := createTestReservation(t, db, time.Now())

	// pending -> completed не входит в граф переходов
	_, err := svc.Transition(ctx, reservation.ID, models.ReservationStatusPending, models.ReservationStatusCompleted, &CompletionData{Rating: 5})
	var invalid *InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, models.ReservationStatusPending, invalid.From)
	assert.Equal(t, models.ReservationStatusCompleted, invalid.To)

	var current models.Reservation
	require.NoError(t, db.First(&current, "id = ?", reservation.ID).Error)
	assert.Equal(t, models.ReservationStatusPending, current.Status)
}

func TestStaleStateDetected(t *testing.T) {
	db := newTestDB(t)
	svc := newTestReservationService(db, testConfig())
	ctx := context.Background()

	driver := createEligibleDriver(t, db)
	reservation := createTestReservation(t, db, time.Now())

	_, err := svc.Accept(ctx, reservation.ID, driver.ID)
	require.NoError(t, err)

	// Повторное принятие: ожидаемый статус pending уже не актуален
	_, err = svc.Accept(ctx, reservation.ID, driver.ID)
	var stale *StaleStateError
	require.ErrorAs(t, err, &stale)
	assert.Equal(t, models.ReservationStatusPending, stale.Expected)
	assert.Equal(t, models.ReservationStatusAccepted, stale.Actual)
}

func TestConcurrentTransitionsOneWins(t *testing.T) {
	db := newTestDB(t)

	// Одно соединение, чтобы sqlite не возвращал ошибки блокировки
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	svc := newTestReservationService(db, testConfig())
	ctx := context.Background()

	reservation := createTestReservation(t, db, time.Now())

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := svc.Accept(ctx, reservation.ID, "")
		errs <- err
	}()
	go func() {
		defer wg.Done()
		_, err := svc.Reject(ctx, reservation.ID)
		errs <- err
	}()
	wg.Wait()
	close(errs)

	var wins, conflicts int
	for err := range errs {
		if err == nil {
			wins++
			continue
		}
		var stale *StaleStateError
		require.ErrorAs(t, err, &stale)
		assert.Equal(t, models.ReservationStatusPending, stale.Expected)
		conflicts++
	}

	// Ровно один переход проходит, второй видит устаревший статус
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, conflicts)

	var current models.Reservation
	require.NoError(t, db.First(&current, "id = ?", reservation.ID).Error)
	assert.Contains(t, []models.ReservationStatus{
		models.ReservationStatusAccepted,
		models.ReservationStatusCancelled,
	}, current.Status)
}

func TestRejectKeepsRecordWithoutAccounting(t *testing.T) {
	db := newTestDB(t)
	svc := newTestReservationService(db, testConfig())
	ctx := context.Background()

	reservation := createTestReservation(t, db, time.Now())

	updated, err := svc.Reject(ctx, reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationStatusCancelled, updated.Status)

	// Запись сохраняется для истории
	var count int64
	require.NoError(t, db.Model(&models.Reservation{}).Where("id = ?", reservation.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	require.NoError(t, db.Model(&models.AccountingTransaction{}).
		Where("reservation_id = ?", reservation.ID).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestCompleteRequiresRating(t *testing.T) {
	db := newTestDB(t)
	svc := newTestReservationService(db, testConfig())
	ctx := context.Background()

	driver := createEligibleDriver(t, db)
	reservation := createTestReservation(t, db, time.Now())

	_, err := svc.Accept(ctx, reservation.ID, driver.ID)
	require.NoError(t, err)
	_, err = svc.Start(ctx, reservation.ID)
	require.NoError(t, err)
	_, err = svc.Arrive(ctx, reservation.ID)
	require.NoError(t, err)
	_, err = svc.Board(ctx, reservation.ID)
	require.NoError(t, err)

	for _, rating := range []int{0, 6} {
		_, err = svc.Complete(ctx, reservation.ID, CompletionData{Rating: rating})
		var missing *MissingCompletionDataError
		assert.ErrorAs(t, err, &missing)
	}

	var current models.Reservation
	require.NoError(t, db.First(&current, "id = ?", reservation.ID).Error)
	assert.Equal(t, models.ReservationStatusOnBoard, current.Status)
	assert.Nil(t, current.DropoffTime)
}

func TestStartTooEarlyBlocked(t *testing.T) {
	db := newTestDB(t)
	svc := newTestReservationService(db, testConfig())
	ctx := context.Background()

	driver := createEligibleDriver(t, db)
	// Подача через 6 часов, окно запуска 2 часа
	reservation := createTestReservation(t, db, time.Now().Add(6*time.Hour))

	_, err := svc.Accept(ctx, reservation.ID, driver.ID)
	require.NoError(t, err)

	_, err = svc.Start(ctx, reservation.ID)
	var tooEarly *StartWindowError
	require.ErrorAs(t, err, &tooEarly)
	assert.WithinDuration(t, reservation.Date.Add(-2*time.Hour), tooEarly.AllowedFrom, time.Second)

	var current models.Reservation
	require.NoError(t, db.First(&current, "id = ?", reservation.ID).Error)
	assert.Equal(t, models.ReservationStatusAccepted, current.Status)
}

func TestTransitionNotFound(t *testing.T) {
	db := newTestDB(t)
	svc := newTestReservationService(db, testConfig())

	_, err := svc.Reject(context.Background(), "00000000-0000-0000-0000-000000000000")
	assert.True(t, errors.Is(err, ErrReservationNotFound))
}

func TestCanDriverTakeRide(t *testing.T) {
	db := newTestDB(t)
	svc := newTestReservationService(db, testConfig())
	ctx := context.Background()

	driver := createEligibleDriver(t, db)

	eligible, err := svc.CanDriverTakeRide(ctx, driver.ID)
	require.NoError(t, err)
	assert.True(t, eligible)

	// Деактивированный профиль теряет допуск
	require.NoError(t, db.Model(&models.Profile{}).Where("id = ?", driver.ID).
		Update("status", models.ProfileStatusInactive).Error)

	eligible, err = svc.CanDriverTakeRide(ctx, driver.ID)
	require.NoError(t, err)
	assert.False(t, eligible)
}
