package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"vtc-dispatch/internal/config"
	"vtc-dispatch/internal/middleware"
	"vtc-dispatch/internal/models"
)

// allowedTransitions — граф жизненного цикла заказа. pending — начальный
// статус, completed и cancelled — терминальные. Отклонение заказа
// моделируется переходом pending -> cancelled, запись сохраняется
// для истории.
var allowedTransitions = map[models.ReservationStatus][]models.ReservationStatus{
	models.ReservationStatusPending:  {models.ReservationStatusAccepted, models.ReservationStatusCancelled},
	models.ReservationStatusAccepted: {models.ReservationStatusStarted},
	models.ReservationStatusStarted:  {models.ReservationStatusArrived},
	models.ReservationStatusArrived:  {models.ReservationStatusOnBoard},
	models.ReservationStatusOnBoard:  {models.ReservationStatusCompleted},
}

func canTransition(from, to models.ReservationStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CompletionData — данные, которые водитель передает вместе с
// завершением поездки
type CompletionData struct {
	Rating  int
	Comment string
}

// transitionOptions — дополнительные данные конкретных переходов
type transitionOptions struct {
	driverID   string
	completion *CompletionData
}

// ReservationService — машина состояний заказа. Все переходы выполняются
// условным обновлением по текущему статусу (оптимистическая блокировка),
// побочные эффекты завершения (время высадки, маршрут, бухгалтерские
// проводки) фиксируются в той же транзакции.
type ReservationService struct {
	db         *gorm.DB
	cfg        *config.Config
	accounting *AccountingService
	routes     *RouteBuilder
	notifier   ReservationNotifier
}

func NewReservationService(db *gorm.DB, cfg *config.Config, accounting *AccountingService, routes *RouteBuilder, notifier ReservationNotifier) *ReservationService {
	return &ReservationService{
		db:         db,
		cfg:        cfg,
		accounting: accounting,
		routes:     routes,
		notifier:   notifier,
	}
}

// Create сохраняет новый заказ в статусе pending и рассылает событие
// о создании
func (s *ReservationService) Create(ctx context.Context, reservation *models.Reservation) error {
	reservation.Status = models.ReservationStatusPending
	if err := s.db.WithContext(ctx).Create(reservation).Error; err != nil {
		return err
	}
	if s.notifier != nil {
		s.notifier.ReservationCreated(reservation)
	}
	return nil
}

// Accept — водитель или диспетчер принимает заказ. Перед принятием
// проверяется допуск водителя (активный профиль, роль водителя,
// принятые документы).
func (s *ReservationService) Accept(ctx context.Context, id, driverID string) (*models.Reservation, error) {
	if driverID != "" {
		eligible, err := s.CanDriverTakeRide(ctx, driverID)
		if err != nil {
			return nil, err
		}
		if !eligible {
			return nil, ErrDriverNotEligible
		}
	}
	return s.transition(ctx, id, models.ReservationStatusPending, models.ReservationStatusAccepted,
		&transitionOptions{driverID: driverID})
}

/// Reject — отклонение заказа в ожидании: терминальный переход в cancelled.
// Бухгалтерские проводки для отклоненного заказа никогда не создаются.
func (s *ReservationService) Reject(ctx context.Context, id string) (*models.Reservation, error) {
	return s.transition(ctx, id, models.ReservationStatusPending, models.ReservationStatusCancelled, nil)
}

// Start — водитель выезжает к клиенту. Разрешено только внутри
// настроенного окна перед запланированным временем подачи.
func (s *ReservationService) Start(ctx context.Context, id string) (*models.Reservation, error) {
	return s.transition(ctx, id, models.ReservationStatusAccepted, models.ReservationStatusStarted, nil)
}

// Arrive — водитель на месте подачи
func (s *ReservationService) Arrive(ctx context.Context, id string) (*models.Reservation, error) {
	return s.transition(ctx, id, models.ReservationStatusStarted, models.ReservationStatusArrived, nil)
}

// Board — клиент сел в машину
func (s *ReservationService) Board(ctx context.Context, id string) (*models.Reservation, error) {
	return s.transition(ctx, id, models.ReservationStatusArrived, models.ReservationStatusOnBoard, nil)
}

// Complete — завершение поездки: требует оценку 1-5, фиксирует время
// высадки, достраивает маршрут и создает бухгалтерские проводки
// в одной транзакции со сменой статуса
func (s *ReservationService) Complete(ctx context.Context, id string, data CompletionData) (*models.Reservation, error) {
	return s.transition(ctx, id, models.ReservationStatusOnBoard, models.ReservationStatusCompleted,
		&transitionOptions{completion: &data})
}

// Transition выполняет произвольный переход с явным ожидаемым статусом.
// Используется диспетчерским интерфейсом, где клиент присылает статус,
// который он видел на момент действия.
func (s *ReservationService) Transition(ctx context.Context, id string, expected, target models.ReservationStatus, completion *CompletionData) (*models.Reservation, error) {
	return s.transition(ctx, id, expected, target, &transitionOptions{completion: completion})
}

func (s *ReservationService) transition(ctx context.Context, id string, expected, target models.ReservationStatus, opts *transitionOptions) (*models.Reservation, error) {
	if opts == nil {
		opts = &transitionOptions{}
	}

	if !canTransition(expected, target) {
		middleware.TrackTransition(string(target), "invalid")
		return nil, &InvalidTransitionError{ReservationID: id, From: expected, To: target}
	}

	var current models.Reservation
	if err := s.db.WithContext(ctx).First(&current, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}

	now := time.Now()

	// Предпроверки, не требующие записи
	if target == models.ReservationStatusStarted {
		allowedFrom := current.Date.Add(-s.cfg.RideStartWindow)
		if now.Before(allowedFrom) {
			middleware.TrackTransition(string(target), "too_early")
			return nil, &StartWindowError{ReservationID: id, AllowedFrom: allowedFrom}
		}
	}
	if target == models.ReservationStatusCompleted {
		if opts.completion == nil || opts.completion.Rating < 1 || opts.completion.Rating > 5 {
			middleware.TrackTransition(string(target), "missing_data")
			return nil, &MissingCompletionDataError{ReservationID: id}
		}
	}

	updates := map[string]interface{}{
		"status":     target,
		"updated_at": now,
	}

	switch target {
	case models.ReservationStatusAccepted:
		if opts.driverID != "" && current.DriverID == nil {
			updates["driver_id"] = opts.driverID
		}
	case models.ReservationStatusStarted:
		if current.ActualPickupTime == nil {
			updates["actual_pickup_time"] = now
		}
	case models.ReservationStatusArrived:
		updates["actual_pickup_time"] = now
	case models.ReservationStatusCompleted:
		updates["dropoff_time"] = now
		updates["rating"] = opts.completion.Rating
		if opts.completion.Comment != "" {
			updates["comment"] = opts.completion.Comment
		}
		if len(current.Route) == 0 && s.routes != nil {
			route, distance, duration := s.routes.Build(ctx, current.PickupAddress, current.Destination)
			if len(route) > 0 {
				updates["route"] = route
				if current.Distance == "" {
					updates["distance"] = distance
				}
				if current.Duration == "" {
					updates["duration"] = duration
				}
			}
		}
	}

	var updated models.Reservation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Условное обновление: переход проходит только если статус
		// не изменился с момента, который видел вызывающий
		result := tx.Model(&models.Reservation{}).
			Where("id = ? AND status = ?", id, expected).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			var actual models.Reservation
			if err := tx.First(&actual, "id = ?", id).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrReservationNotFound
				}
				return err
			}
			return &StaleStateError{ReservationID: id, Expected: expected, Actual: actual.Status}
		}

		if err := tx.First(&updated, "id = ?", id).Error; err != nil {
			return err
		}

		if target == models.ReservationStatusCompleted {
			if err := s.accounting.CreateEntriesForCompletion(tx, &updated); err != nil {
				return &AccountingSyncError{ReservationID: id, Err: err}
			}
		}
		return nil
	})
	if err != nil {
		var stale *StaleStateError
		if errors.As(err, &stale) {
			middleware.TrackTransition(string(target), "stale")
		}
		return nil, err
	}

	middleware.TrackTransition(string(target), "ok")
	if s.notifier != nil {
		s.notifier.ReservationStatusChanged(&updated, expected, target)
		if target == models.ReservationStatusCompleted {
			s.notifyAccountingEntries(ctx, &updated)
		}
	}
	return &updated, nil
}

func (s *ReservationService) notifyAccountingEntries(ctx context.Context, reservation *models.Reservation) {
	var entries []models.AccountingTransaction
	if err := s.db.WithContext(ctx).
		Where("reservation_id = ?", reservation.ID).
		Find(&entries).Error; err != nil {
		return
	}
	for i := range entries {
		s.notifier.AccountingEntryRecorded(&entries[i])
	}
}

// CanDriverTakeRide проверяет допуск водителя: активный профиль,
// роль водителя и хотя бы один принятый документ
func (s *ReservationService) CanDriverTakeRide(ctx context.Context, driverID string) (bool, error) {
	var profile models.Profile
	if err := s.db.WithContext(ctx).First(&profile, "id = ?", driverID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	if profile.Status != models.ProfileStatusActive {
		return false, nil
	}

	var roleCount int64
	if err := s.db.WithContext(ctx).Model(&models.UserRole{}).
		Where("user_id = ? AND role = ?", driverID, models.RoleDriver).
		Count(&roleCount).Error; err != nil {
		return false, err
	}
	if roleCount == 0 {
		return false, nil
	}

	var docCount int64
	if err := s.db.WithContext(ctx).Model(&models.DriverDocument{}).
		Where("user_id = ? AND status = ?", driverID, models.DocumentStatusApproved).
		Count(&docCount).Error; err != nil {
		return false, err
	}
	return docCount > 0, nil
}
