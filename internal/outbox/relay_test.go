package outbox_test

import (
	"context"
	"testing"

	"checkout-service/internal/domain"
	"checkout-service/internal/mocks"
	"checkout-service/internal/outbox"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

func pendingMessage(id uint64, attempts int) outbox.Message {
	return outbox.Message{
		ID:       id,
		OrderID:  "ORD-1",
		Payload:  `{"paymentId":"PAY-1","status":"PAID","transactionRef":"ch_1","amount":"34.4"}`,
		Status:   outbox.StatusPending,
		Attempts: attempts,
	}
}

func TestDrain(t *testing.T) {
	t.Run("delivered message is marked and published", func(t *testing.T) {
		store := new(mocks.MockOutboxStore)
		deliverer := new(mocks.MockDeliverer)
		publisher := new(mocks.MockPublisher)
		relay := outbox.NewRelay(store, deliverer, publisher, zap.NewNop())

		store.On("FetchPending", 50).Return([]outbox.Message{pendingMessage(1, 0)}, nil)
		deliverer.On("Deliver", mock.Anything, "ORD-1", mock.MatchedBy(func(u domain.PaymentStatusUpdate) bool {
			return u.PaymentID == "PAY-1" && u.Status == "PAID"
		})).Return(nil)
		store.On("MarkDelivered", uint64(1)).Return(nil)
		publisher.On("Publish", mock.Anything, "payment.status", mock.Anything).Return(nil)

		err := relay.Drain(context.Background())

		assert.NoError(t, err)
		store.AssertExpectations(t)
		deliverer.AssertExpectations(t)
		publisher.AssertExpectations(t)
	})

	t.Run("failed delivery records an attempt and keeps the row pending", func(t *testing.T) {
		store := new(mocks.MockOutboxStore)
		deliverer := new(mocks.MockDeliverer)
		relay := outbox.NewRelay(store, deliverer, nil, zap.NewNop())

		store.On("FetchPending", 50).Return([]outbox.Message{pendingMessage(1, 0)}, nil)
		deliverer.On("Deliver", mock.Anything, "ORD-1", mock.Anything).Return(assert.AnError)
		store.On("RecordAttempt", uint64(1), 1, false).Return(nil)

		err := relay.Drain(context.Background())

		assert.NoError(t, err)
		store.AssertNotCalled(t, "MarkDelivered", mock.Anything)
		store.AssertExpectations(t)
	})

	t.Run("attempts exhaust after the retry budget", func(t *testing.T) {
		store := new(mocks.MockOutboxStore)
		deliverer := new(mocks.MockDeliverer)
		relay := outbox.NewRelay(store, deliverer, nil, zap.NewNop())

		store.On("FetchPending", 50).Return([]outbox.Message{pendingMessage(1, 4)}, nil)
		deliverer.On("Deliver", mock.Anything, "ORD-1", mock.Anything).Return(assert.AnError)
		store.On("RecordAttempt", uint64(1), 5, true).Return(nil)

		err := relay.Drain(context.Background())

		assert.NoError(t, err)
		store.AssertExpectations(t)
	})

	t.Run("malformed payload is failed immediately", func(t *testing.T) {
		store := new(mocks.MockOutboxStore)
		deliverer := new(mocks.MockDeliverer)
		relay := outbox.NewRelay(store, deliverer, nil, zap.NewNop())

		broken := pendingMessage(2, 0)
		broken.Payload = "{not json"
		store.On("FetchPending", 50).Return([]outbox.Message{broken}, nil)
		store.On("RecordAttempt", uint64(2), 1, true).Return(nil)

		err := relay.Drain(context.Background())

		assert.NoError(t, err)
		deliverer.AssertNotCalled(t, "Deliver", mock.Anything, mock.Anything, mock.Anything)
		store.AssertExpectations(t)
	})

	t.Run("fetch error is surfaced", func(t *testing.T) {
		store := new(mocks.MockOutboxStore)
		relay := outbox.NewRelay(store, new(mocks.MockDeliverer), nil, zap.NewNop())

		store.On("FetchPending", 50).Return(nil, assert.AnError)

		err := relay.Drain(context.Background())

		assert.ErrorIs(t, err, assert.AnError)
	})
}
