package services

import (
	"errors"
	"fmt"
	"time"

	"vtc-dispatch/internal/models"
)

var (
	// ErrReservationNotFound возвращается, когда заказ не существует
	ErrReservationNotFound = errors.New("заказ не найден")

	// ErrDriverNotEligible возвращается, когда водитель не может принимать заказы
	// (профиль неактивен, нет роли водителя или нет принятых документов)
	ErrDriverNotEligible = errors.New("водитель не допущен к выполнению заказов")
)

// InvalidTransitionError — запрошенный переход статуса не входит в граф переходов
type InvalidTransitionError struct {
	ReservationID string
	From          models.ReservationStatus
	To            models.ReservationStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("недопустимый переход статуса заказа %s: %s -> %s", e.ReservationID, e.From, e.To)
}

// StaleStateError — статус заказа уже изменен другим участником,
// условное обновление не затронуло ни одной строки
type StaleStateError struct {
	ReservationID string
	Expected      models.ReservationStatus
	Actual        models.ReservationStatus
}

func (e *StaleStateError) Error() string {
	return fmt.Sprintf("статус заказа %s уже изменен: ожидался %s, фактически %s", e.ReservationID, e.Expected, e.Actual)
}

// MissingCompletionDataError — попытка завершить поездку без оценки
type MissingCompletionDataError struct {
	ReservationID string
}

func (e *MissingCompletionDataError) Error() string {
	return fmt.Sprintf("для завершения заказа %s требуется оценка от 1 до 5", e.ReservationID)
}

// StartWindowError — до начала разрешенного окна запуска поездки еще далеко
type StartWindowError struct {
	ReservationID string
	AllowedFrom   time.Time
}

func (e *StartWindowError) Error() string {
	return fmt.Sprintf("поездку %s можно начать не раньше %s", e.ReservationID, e.AllowedFrom.Format(time.RFC3339))
}

// NoPriceError — для маршрута не найден ни пакет, ни тариф
type NoPriceError struct {
	ZoneFromID  string
	ZoneToID    string
	VehicleType models.VehicleType
}

func (e *NoPriceError) Error() string {
	return fmt.Sprintf("нет тарифа для маршрута %s -> %s (%s)", e.ZoneFromID, e.ZoneToID, e.VehicleType)
}

// AccountingSyncError — запись бухгалтерских проводок не удалась.
// Переход в completed откатывается целиком, заказ не остается
// завершенным без строки дохода.
type AccountingSyncError struct {
	ReservationID string
	Err           error
}

func (e *AccountingSyncError) Error() string {
	return fmt.Sprintf("ошибка синхронизации бухгалтерии для заказа %s: %v", e.ReservationID, e.Err)
}

func (e *AccountingSyncError) Unwrap() error {
	return e.Err
}
