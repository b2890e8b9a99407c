package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"vtc-dispatch/internal/middleware"
	"vtc-dispatch/internal/models"
)

// AccountingService синтезирует бухгалтерские проводки при завершении
// поездки: строку дохода на полную сумму и строку комиссии платформы.
// Проводки создаются в той же транзакции, что и смена статуса.
type AccountingService struct {
	db *gorm.DB
}

func NewAccountingService(db *gorm.DB) *AccountingService {
	return &AccountingService{db: db}
}

// CreateEntriesForCompletion создает проводки для завершенного заказа.
// Повторный вызов для того же заказа не создает дублей: перед вставкой
// проверяется наличие строки с той же парой (reservation_id, category).
func (s *AccountingService) CreateEntriesForCompletion(tx *gorm.DB, reservation *models.Reservation) error {
	transactionDate := time.Now()
	if reservation.DropoffTime != nil {
		transactionDate = *reservation.DropoffTime
	}

	if reservation.Amount > 0 {
		created, err := s.insertIfAbsent(tx, &models.AccountingTransaction{
			ReservationID:   &reservation.ID,
			TransactionDate: transactionDate,
			TransactionType: models.TransactionTypeRevenue,
			Amount:          reservation.Amount,
			Category:        models.AccountingCategoryRideIncome,
			Description:     "Revenu de la course: " + reservation.ClientName,
			PaymentStatus:   models.TransactionPaymentCompleted,
		})
		if err != nil {
			return fmt.Errorf("проводка дохода: %w", err)
		}
		if created {
			middleware.TrackAccountingEntry(string(models.TransactionTypeRevenue))
		}
	}

	if reservation.Commission > 0 {
		created, err := s.insertIfAbsent(tx, &models.AccountingTransaction{
			ReservationID:   &reservation.ID,
			TransactionDate: transactionDate,
			TransactionType: models.TransactionTypeCommission,
			Amount:          reservation.Commission,
			Category:        models.AccountingCategoryPlatformFee,
			Description:     "Commission plateforme: " + reservation.ClientName,
			PaymentStatus:   models.TransactionPaymentCompleted,
		})
		if err != nil {
			return fmt.Errorf("проводка комиссии: %w", err)
		}
		if created {
			middleware.TrackAccountingEntry(string(models.TransactionTypeCommission))
		}
	}

	return nil
}

// insertIfAbsent вставляет проводку, если для заказа еще нет строки
// в этой категории. Пара (reservation_id, category) служит ключом дедупликации.
func (s *AccountingService) insertIfAbsent(tx *gorm.DB, transaction *models.AccountingTransaction) (bool, error) {
	var count int64
	if err := tx.Model(&models.AccountingTransaction{}).
		Where("reservation_id = ? AND category = ?", transaction.ReservationID, transaction.Category).
		Count(&count).Error; err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	if err := tx.Create(transaction).Error; err != nil {
		return false, err
	}
	return true, nil
}

// Reconcile находит завершенные заказы без строки дохода и дозаписывает
// недостающие проводки. Страховка на случай, если завершение было
// зафиксировано, а проводки по какой-то причине потерялись.
func (s *AccountingService) Reconcile(ctx context.Context) (int, error) {
	var orphans []models.Reservation
	err := s.db.WithContext(ctx).
		Where("status = ? AND amount > 0", models.ReservationStatusCompleted).
		Where("id NOT IN (?)", s.db.Model(&models.AccountingTransaction{}).
			Select("reservation_id").
			Where("category = ? AND reservation_id IS NOT NULL", models.AccountingCategoryRideIncome)).
		Find(&orphans).Error
	if err != nil {
		return 0, fmt.Errorf("поиск заказов без проводок: %w", err)
	}

	repaired := 0
	for i := range orphans {
		reservation := &orphans[i]
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return s.CreateEntriesForCompletion(tx, reservation)
		})
		if err != nil {
			log.Printf("Сверка бухгалтерии: не удалось восстановить проводки заказа %s: %v", reservation.ID, err)
			continue
		}
		repaired++
	}

	if repaired > 0 {
		log.Printf("Сверка бухгалтерии: восстановлены проводки для %d заказов", repaired)
	}
	return repaired, nil
}

// StartReconciler запускает периодическую сверку в фоне
func (s *AccountingService) StartReconciler(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.Reconcile(ctx); err != nil {
					log.Printf("Ошибка фоновой сверки бухгалтерии: %v", err)
				}
			}
		}
	}()
}

// AccountingSummary — сводка по типам проводок за период
type AccountingSummary struct {
	TotalRevenue    float64 `json:"total_revenue"`
	TotalCommission float64 `json:"total_commission"`
	TotalExpenses   float64 `json:"total_expenses"`
	NetIncome       float64 `json:"net_income"`
}

// Summary считает итоги по книге за период [from, to]
func (s *AccountingService) Summary(ctx context.Context, from, to time.Time) (*AccountingSummary, error) {
	type row struct {
		TransactionType models.TransactionType
		Total           float64
	}
	var rows []row
	err := s.db.WithContext(ctx).Model(&models.AccountingTransaction{}).
		Select("transaction_type, COALESCE(SUM(amount), 0) AS total").
		Where("transaction_date >= ? AND transaction_date <= ?", from, to).
		Where("payment_status != ?", models.TransactionPaymentCancelled).
		Group("transaction_type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	summary := &AccountingSummary{}
	for _, r := range rows {
		switch r.TransactionType {
		case models.TransactionTypeRevenue:
			summary.TotalRevenue = r.Total
		case models.TransactionTypeCommission:
			summary.TotalCommission = r.Total
		case models.TransactionTypeExpense:
			summary.TotalExpenses = r.Total
		}
	}
	summary.NetIncome = round2(summary.TotalRevenue - summary.TotalExpenses)
	return summary, nil
}
