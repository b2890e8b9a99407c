package services

import (
	"fmt"
	"log"

	"gorm.io/gorm"

	"vtc-dispatch/internal/middleware"
	"vtc-dispatch/internal/models"
	"vtc-dispatch/internal/websocket"
)

// ReservationNotifier — граница уведомлений, которую дергает машина
// состояний после фиксации перехода. Доставка не влияет на консистентность
// самого заказа: ошибки логируются и учитываются в метриках.
type ReservationNotifier interface {
	ReservationCreated(reservation *models.Reservation)
	ReservationStatusChanged(reservation *models.Reservation, oldStatus, newStatus models.ReservationStatus)
	AccountingEntryRecorded(transaction *models.AccountingTransaction)
}

// Общая FCM-тема, на которую подписаны приложения водителей
const driversTopic = "drivers"

// NotificationService доставляет события по двум каналам: WebSocket для
// открытых клиентов и FCM push для водителей. Цели push-уведомления:
// назначенный водитель заказа, либо все активные водители, если заказ
// еще не назначен.
type NotificationService struct {
	db       *gorm.DB
	firebase *FirebaseService
}

func NewNotificationService(db *gorm.DB, firebase *FirebaseService) *NotificationService {
	return &NotificationService{
		db:       db,
		firebase: firebase,
	}
}

func (s *NotificationService) ReservationCreated(reservation *models.Reservation) {
	websocket.SendReservationCreated(reservation.ID, string(reservation.Status))

	title := "Nouvelle course"
	body := fmt.Sprintf("Départ: %s, Destination: %s", reservation.PickupAddress, reservation.Destination)
	data := map[string]interface{}{
		"type":           "reservation_created",
		"reservation_id": reservation.ID,
	}
	go s.pushToTargets(reservation, title, body, data)
}

func (s *NotificationService) ReservationStatusChanged(reservation *models.Reservation, oldStatus, newStatus models.ReservationStatus) {
	websocket.SendReservationStatusUpdate(reservation.ID, string(oldStatus), string(newStatus))

	title := "Course mise à jour"
	body := fmt.Sprintf("%s: %s -> %s", reservation.ClientName, oldStatus, newStatus)
	data := map[string]interface{}{
		"type":           "reservation_status_changed",
		"reservation_id": reservation.ID,
		"old_status":     string(oldStatus),
		"new_status":     string(newStatus),
	}
	go s.pushToTargets(reservation, title, body, data)
}

func (s *NotificationService) AccountingEntryRecorded(transaction *models.AccountingTransaction) {
	websocket.SendAccountingEntryRecorded(transaction.ID, string(transaction.TransactionType), transaction.Amount)
}

// pushToTargets отправляет push назначенному водителю, а для свободного
// заказа — всем активным водителям с зарегистрированным FCM-токеном.
// Если ни у кого нет токена, событие уходит в общую тему водителей.
func (s *NotificationService) pushToTargets(reservation *models.Reservation, title, body string, data map[string]interface{}) {
	tokens := s.resolveTokens(reservation)
	if len(tokens) == 0 {
		if err := s.firebase.SendTopicNotification(driversTopic, title, body, data); err != nil {
			log.Printf("Ошибка отправки push в тему %s по заказу %s: %v", driversTopic, reservation.ID, err)
			middleware.TrackNotification("push_topic", "error")
			return
		}
		middleware.TrackNotification("push_topic", "ok")
		return
	}

	for _, token := range tokens {
		if err := s.firebase.SendNotification(token, title, body, data); err != nil {
			log.Printf("Ошибка отправки push по заказу %s: %v", reservation.ID, err)
			middleware.TrackNotification("push", "error")
			continue
		}
		middleware.TrackNotification("push", "ok")
	}
}

func (s *NotificationService) resolveTokens(reservation *models.Reservation) []string {
	if reservation.DriverID != nil {
		var driver models.Profile
		if err := s.db.First(&driver, "id = ?", *reservation.DriverID).Error; err != nil {
			log.Printf("Не удалось загрузить профиль водителя %s: %v", *reservation.DriverID, err)
			return nil
		}
		if driver.FCMToken == "" {
			return nil
		}
		return []string{driver.FCMToken}
	}

	var tokens []string
	err := s.db.Model(&models.Profile{}).
		Joins("JOIN user_roles ON user_roles.user_id = profiles.id AND user_roles.role = ?", models.RoleDriver).
		Where("profiles.status = ? AND profiles.fcm_token != ''", models.ProfileStatusActive).
		Pluck("profiles.fcm_token", &tokens).Error
	if err != nil {
		log.Printf("Не удалось получить FCM-токены активных водителей: %v", err)
		return nil
	}
	return tokens
}
