package services

import (
	"context"
	"testing"

	"checkout-service/internal/domain"
	"checkout-service/internal/gateway"
	"checkout-service/internal/mocks"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

type reconcilerFixture struct {
	reconciler *WebhookReconciler
	payments   *mocks.MockPaymentRepository
	gw         *mocks.MockGateway
	dedup      *mocks.MockDedupStore
	pusher     *mocks.MockStatusPusher
}

func newReconcilerForTest() *reconcilerFixture {
	f := &reconcilerFixture{
		payments: new(mocks.MockPaymentRepository),
		gw:       new(mocks.MockGateway),
		dedup:    new(mocks.MockDedupStore),
		pusher:   new(mocks.MockStatusPusher),
	}
	f.reconciler = NewWebhookReconciler(f.payments, f.gw, f.dedup, f.pusher, zap.NewNop())
	return f
}

func TestHandleWebhook(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)

	t.Run("invalid signature changes no state", func(t *testing.T) {
		f := newReconcilerForTest()
		f.gw.On("VerifyAndParseWebhook", payload, "bad").Return(nil, domain.ErrInvalidSignature)

		err := f.reconciler.HandleWebhook(context.Background(), payload, "bad")

		assert.ErrorIs(t, err, domain.ErrInvalidSignature)
		f.payments.AssertNotCalled(t, "FindByIntentID", mock.Anything)
		f.dedup.AssertNotCalled(t, "MarkProcessed", mock.Anything, mock.Anything)
	})

	t.Run("duplicate event is acknowledged without dispatch", func(t *testing.T) {
		f := newReconcilerForTest()
		f.gw.On("VerifyAndParseWebhook", payload, "sig").Return(&gateway.Event{
			ID: "evt_1", Type: gateway.EventPaymentSucceeded, IntentID: "pi_123",
		}, nil)
		f.dedup.On("MarkProcessed", mock.Anything, "evt_1").Return(false, nil)

		err := f.reconciler.HandleWebhook(context.Background(), payload, "sig")

		assert.NoError(t, err)
		f.payments.AssertNotCalled(t, "FindByIntentID", mock.Anything)
	})

	t.Run("dedup store outage does not drop the event", func(t *testing.T) {
		f := newReconcilerForTest()
		f.gw.On("VerifyAndParseWebhook", payload, "sig").Return(&gateway.Event{
			ID: "evt_1", Type: gateway.EventPaymentSucceeded, IntentID: "pi_123",
		}, nil)
		f.dedup.On("MarkProcessed", mock.Anything, "evt_1").Return(false, assert.AnError)
		f.payments.On("FindByIntentID", "pi_123").Return(nil, nil)

		err := f.reconciler.HandleWebhook(context.Background(), payload, "sig")

		assert.NoError(t, err)
		f.payments.AssertExpectations(t)
	})

	t.Run("succeeded event forces the payment completed and pushes", func(t *testing.T) {
		f := newReconcilerForTest()
		f.gw.On("VerifyAndParseWebhook", payload, "sig").Return(&gateway.Event{
			ID: "evt_1", Type: gateway.EventPaymentSucceeded, IntentID: "pi_123", ChargeID: "ch_1",
		}, nil)
		f.dedup.On("MarkProcessed", mock.Anything, "evt_1").Return(true, nil)
		f.payments.On("FindByIntentID", "pi_123").Return(&domain.Payment{
			ID: 1, PaymentID: "PAY-1", OrderID: "ORD-1",
			Amount: decimal.NewFromFloat(34.40),
			Status: domain.PaymentStatusProcessing, PaymentIntentID: "pi_123",
		}, nil)
		f.gw.On("RetrieveCharge", mock.Anything, "ch_1").Return(&gateway.Charge{
			ID: "ch_1", ReceiptURL: "https://receipts.example/ch_1",
		}, nil)
		f.payments.On("Update", mock.MatchedBy(func(p *domain.Payment) bool {
			return p.Status == domain.PaymentStatusCompleted &&
				p.ChargeID == "ch_1" &&
				p.ReceiptURL == "https://receipts.example/ch_1" &&
				p.ProcessedAt != nil
		})).Return(nil)
		f.pusher.On("Push", mock.Anything, "ORD-1", mock.MatchedBy(func(u domain.PaymentStatusUpdate) bool {
			return u.Status == "PAID" && u.TransactionRef == "ch_1"
		})).Return()

		err := f.reconciler.HandleWebhook(context.Background(), payload, "sig")

		assert.NoError(t, err)
		f.payments.AssertExpectations(t)
		f.pusher.AssertExpectations(t)
	})

	t.Run("transient handler failure releases the event id for redelivery", func(t *testing.T) {
		f := newReconcilerForTest()
		f.gw.On("VerifyAndParseWebhook", payload, "sig").Return(&gateway.Event{
			ID: "evt_1", Type: gateway.EventPaymentSucceeded, IntentID: "pi_123", ChargeID: "ch_1",
		}, nil)
		f.dedup.On("MarkProcessed", mock.Anything, "evt_1").Return(true, nil).Twice()
		f.gw.On("RetrieveCharge", mock.Anything, "ch_1").Return(&gateway.Charge{ID: "ch_1"}, nil)

		// Each delivery re-reads the payment, still unconverged.
		f.payments.On("FindByIntentID", "pi_123").Return(&domain.Payment{
			ID: 1, PaymentID: "PAY-1", OrderID: "ORD-1",
			Status: domain.PaymentStatusProcessing, PaymentIntentID: "pi_123",
		}, nil).Once()
		f.payments.On("FindByIntentID", "pi_123").Return(&domain.Payment{
			ID: 1, PaymentID: "PAY-1", OrderID: "ORD-1",
			Status: domain.PaymentStatusProcessing, PaymentIntentID: "pi_123",
		}, nil).Once()

		f.payments.On("Update", mock.Anything).Return(assert.AnError).Once()
		f.dedup.On("Forget", mock.Anything, "evt_1").Return(nil).Once()

		err := f.reconciler.HandleWebhook(context.Background(), payload, "sig")
		assert.ErrorIs(t, err, assert.AnError)
		f.pusher.AssertNotCalled(t, "Push", mock.Anything, mock.Anything, mock.Anything)

		// The gateway redelivers the same event; it must reconcile this time.
		f.payments.On("Update", mock.MatchedBy(func(p *domain.Payment) bool {
			return p.Status == domain.PaymentStatusCompleted
		})).Return(nil).Once()
		f.pusher.On("Push", mock.Anything, "ORD-1", mock.MatchedBy(func(u domain.PaymentStatusUpdate) bool {
			return u.Status == "PAID"
		})).Return()

		err = f.reconciler.HandleWebhook(context.Background(), payload, "sig")
		assert.NoError(t, err)
		f.dedup.AssertExpectations(t)
		f.payments.AssertExpectations(t)
		f.pusher.AssertExpectations(t)
	})

	t.Run("succeeded event for already completed payment is a no-op", func(t *testing.T) {
		f := newReconcilerForTest()
		f.gw.On("VerifyAndParseWebhook", payload, "sig").Return(&gateway.Event{
			ID: "evt_1", Type: gateway.EventPaymentSucceeded, IntentID: "pi_123",
		}, nil)
		f.dedup.On("MarkProcessed", mock.Anything, "evt_1").Return(true, nil)
		f.payments.On("FindByIntentID", "pi_123").Return(&domain.Payment{
			ID: 1, Status: domain.PaymentStatusCompleted,
		}, nil)

		err := f.reconciler.HandleWebhook(context.Background(), payload, "sig")

		assert.NoError(t, err)
		f.payments.AssertNotCalled(t, "Update", mock.Anything)
		f.pusher.AssertNotCalled(t, "Push", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("failed event records gateway error codes", func(t *testing.T) {
		f := newReconcilerForTest()
		f.gw.On("VerifyAndParseWebhook", payload, "sig").Return(&gateway.Event{
			ID: "evt_2", Type: gateway.EventPaymentFailed, IntentID: "pi_123",
			ErrorCode: "card_declined", ErrorMessage: "declined",
		}, nil)
		f.dedup.On("MarkProcessed", mock.Anything, "evt_2").Return(true, nil)
		f.payments.On("FindByIntentID", "pi_123").Return(&domain.Payment{
			ID: 1, PaymentID: "PAY-1", OrderID: "ORD-1",
			Status: domain.PaymentStatusProcessing,
		}, nil)
		f.payments.On("Update", mock.MatchedBy(func(p *domain.Payment) bool {
			return p.Status == domain.PaymentStatusFailed && p.ErrorCode == "card_declined"
		})).Return(nil)
		f.pusher.On("Push", mock.Anything, "ORD-1", mock.MatchedBy(func(u domain.PaymentStatusUpdate) bool {
			return u.Status == "FAILED"
		})).Return()

		err := f.reconciler.HandleWebhook(context.Background(), payload, "sig")

		assert.NoError(t, err)
		f.payments.AssertExpectations(t)
	})

	t.Run("unknown intent is acknowledged without creating a payment", func(t *testing.T) {
		f := newReconcilerForTest()
		f.gw.On("VerifyAndParseWebhook", payload, "sig").Return(&gateway.Event{
			ID: "evt_3", Type: gateway.EventPaymentSucceeded, IntentID: "pi_unknown",
		}, nil)
		f.dedup.On("MarkProcessed", mock.Anything, "evt_3").Return(true, nil)
		f.payments.On("FindByIntentID", "pi_unknown").Return(nil, nil)

		err := f.reconciler.HandleWebhook(context.Background(), payload, "sig")

		assert.NoError(t, err)
		f.payments.AssertNotCalled(t, "Save", mock.Anything)
		f.payments.AssertNotCalled(t, "Update", mock.Anything)
	})

	t.Run("charge refunded is acknowledged without touching the ledger", func(t *testing.T) {
		f := newReconcilerForTest()
		f.gw.On("VerifyAndParseWebhook", payload, "sig").Return(&gateway.Event{
			ID: "evt_4", Type: gateway.EventChargeRefunded, ChargeID: "ch_1",
		}, nil)
		f.dedup.On("MarkProcessed", mock.Anything, "evt_4").Return(true, nil)

		err := f.reconciler.HandleWebhook(context.Background(), payload, "sig")

		assert.NoError(t, err)
		f.payments.AssertNotCalled(t, "FindByIntentID", mock.Anything)
	})
}
