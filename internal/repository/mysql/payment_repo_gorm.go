package mysql

import (
	"errors"

	"checkout-service/internal/domain"
	"checkout-service/internal/repository"

	"gorm.io/gorm"
)

type paymentRepo struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) repository.PaymentRepository {
	return &paymentRepo{db: db}
}

func (r *paymentRepo) Save(payment *domain.Payment) error {
	result := r.db.Create(payment)
	if result.Error != nil {
		return result.Error
	}
	if payment.ID == 0 {
		return errors.New("failed to assign payment ID")
	}
	return nil
}

// Update writes the mutable payment fields with a compare-and-swap on the
// version column. The amount never changes after creation.
func (r *paymentRepo) Update(payment *domain.Payment) error {
	current := payment.Version
	result := r.db.Model(&domain.Payment{}).
		Where("id = ? AND version = ?", payment.ID, current).
		Updates(map[string]interface{}{
			"status":            payment.Status,
			"payment_intent_id": payment.PaymentIntentID,
			"charge_id":         payment.ChargeID,
			"receipt_url":       payment.ReceiptURL,
			"error_code":        payment.ErrorCode,
			"error_message":     payment.ErrorMessage,
			"processed_at":      payment.ProcessedAt,
			"version":           current + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrStaleAggregate
	}
	payment.Version = current + 1
	return nil
}

func (r *paymentRepo) FindByPaymentID(paymentID string) (*domain.Payment, error) {
	return r.findOne("payment_id = ?", paymentID)
}

func (r *paymentRepo) FindByOrderID(orderID string) (*domain.Payment, error) {
	return r.findOne("order_id = ?", orderID)
}

func (r *paymentRepo) FindByIntentID(paymentIntentID string) (*domain.Payment, error) {
	return r.findOne("payment_intent_id = ?", paymentIntentID)
}

func (r *paymentRepo) findOne(query string, arg interface{}) (*domain.Payment, error) {
	var p domain.Payment
	err := r.db.Preload("Refunds").Where(query, arg).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *paymentRepo) FindByUser(userID uint64) ([]domain.Payment, error) {
	var out []domain.Payment
	err := r.db.Preload("Refunds").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *paymentRepo) FindByUserAndStatus(userID uint64, status domain.PaymentStatus) ([]domain.Payment, error) {
	var out []domain.Payment
	err := r.db.Preload("Refunds").
		Where("user_id = ? AND status = ?", userID, status).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

type refundRepo struct {
	db *gorm.DB
}

func NewRefundRepository(db *gorm.DB) repository.RefundRepository {
	return &refundRepo{db: db}
}

func (r *refundRepo) Save(refund *domain.Refund) error {
	result := r.db.Create(refund)
	if result.Error != nil {
		return result.Error
	}
	if refund.ID == 0 {
		return errors.New("failed to assign refund ID")
	}
	return nil
}

func (r *refundRepo) Update(refund *domain.Refund) error {
	return r.db.Model(&domain.Refund{}).
		Where("id = ?", refund.ID).
		Updates(map[string]interface{}{
			"status":           refund.Status,
			"refund_intent_id": refund.RefundIntentID,
			"error_code":       refund.ErrorCode,
			"error_message":    refund.ErrorMessage,
			"processed_at":     refund.ProcessedAt,
		}).Error
}

func (r *refundRepo) FindByRefundID(refundID string) (*domain.Refund, error) {
	var ref domain.Refund
	err := r.db.Where("refund_id = ?", refundID).First(&ref).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &ref, nil
}

func (r *refundRepo) FindByPayment(paymentRef uint64) ([]domain.Refund, error) {
	var out []domain.Refund
	err := r.db.Where("payment_ref = ?", paymentRef).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
