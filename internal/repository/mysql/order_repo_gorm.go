package mysql

import (
	"errors"

	"checkout-service/internal/domain"
	"checkout-service/internal/repository"

	"gorm.io/gorm"
)

type orderRepo struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) repository.OrderRepository {
	return &orderRepo{db: db}
}

func (r *orderRepo) Save(order *domain.Order) error {
	result := r.db.Create(order)
	if result.Error != nil {
		return result.Error
	}
	if order.ID == 0 {
		return errors.New("failed to assign order ID")
	}
	return nil
}

// Update persists the mutable order fields with a compare-and-swap on the
// version column. Items, addresses and money totals are immutable after
// creation and are deliberately not written here.
func (r *orderRepo) Update(order *domain.Order) error {
	current := order.Version
	result := r.db.Model(&domain.Order{}).
		Where("id = ? AND version = ?", order.ID, current).
		Updates(map[string]interface{}{
			"status":          order.Status,
			"payment_method":  order.PaymentMethod,
			"payment_status":  order.PaymentStatus,
			"tracking_number": order.TrackingNumber,
			"notes":           order.Notes,
			"version":         current + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrStaleAggregate
	}
	order.Version = current + 1
	return nil
}

func (r *orderRepo) FindByID(id uint64) (*domain.Order, error) {
	var o domain.Order
	if err := r.db.Preload("Items").First(&o, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}

func (r *orderRepo) FindByNumber(orderNumber string) (*domain.Order, error) {
	var o domain.Order
	err := r.db.Preload("Items").Where("order_number = ?", orderNumber).First(&o).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}

func (r *orderRepo) FindByUser(userID uint64) ([]domain.Order, error) {
	var out []domain.Order
	err := r.db.Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *orderRepo) FindByUserAndStatus(userID uint64, status domain.OrderStatus) ([]domain.Order, error) {
	var out []domain.Order
	err := r.db.Preload("Items").
		Where("user_id = ? AND status = ?", userID, status).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *orderRepo) FindByStatus(status domain.OrderStatus) ([]domain.Order, error) {
	var out []domain.Order
	err := r.db.Preload("Items").
		Where("status = ?", status).
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
