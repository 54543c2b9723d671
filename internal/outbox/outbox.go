package outbox

import (
	"encoding/json"
	"errors"
	"time"

	"checkout-service/internal/domain"

	"gorm.io/gorm"
)

type MessageStatus string

const (
	StatusPending   MessageStatus = "PENDING"
	StatusDelivered MessageStatus = "DELIVERED"
	StatusFailed    MessageStatus = "FAILED"
)

// Message is one queued payment-status push. Rows survive process restarts
// so a crashed relay never loses a status signal.
type Message struct {
	ID        uint64        `gorm:"primaryKey;autoIncrement"`
	OrderID   string        `gorm:"size:64;not null;index"`
	Payload   string        `gorm:"type:text;not null"`
	Status    MessageStatus `gorm:"size:16;not null;index"`
	Attempts  int           `gorm:"not null;default:0"`
	CreatedAt time.Time     `gorm:"autoCreateTime"`
	UpdatedAt time.Time     `gorm:"autoUpdateTime"`
}

func (m *Message) Update() (domain.PaymentStatusUpdate, error) {
	var update domain.PaymentStatusUpdate
	err := json.Unmarshal([]byte(m.Payload), &update)
	return update, err
}

type Store interface {
	Enqueue(orderID string, update domain.PaymentStatusUpdate) error
	FetchPending(limit int) ([]Message, error)
	MarkDelivered(id uint64) error
	RecordAttempt(id uint64, attempts int, exhausted bool) error
}

var _ Store = (*GormStore)(nil)

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Enqueue(orderID string, update domain.PaymentStatusUpdate) error {
	payload, err := json.Marshal(update)
	if err != nil {
		return err
	}
	msg := &Message{
		OrderID: orderID,
		Payload: string(payload),
		Status:  StatusPending,
	}
	if err := s.db.Create(msg).Error; err != nil {
		return err
	}
	if msg.ID == 0 {
		return errors.New("failed to assign outbox message ID")
	}
	return nil
}

func (s *GormStore) FetchPending(limit int) ([]Message, error) {
	var out []Message
	err := s.db.Where("status = ?", StatusPending).
		Order("id ASC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *GormStore) MarkDelivered(id uint64) error {
	return s.db.Model(&Message{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"status": StatusDelivered}).Error
}

func (s *GormStore) RecordAttempt(id uint64, attempts int, exhausted bool) error {
	updates := map[string]interface{}{"attempts": attempts}
	if exhausted {
		updates["status"] = StatusFailed
	}
	return s.db.Model(&Message{}).Where("id = ?", id).Updates(updates).Error
}
