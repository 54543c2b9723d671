package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Identifier generation. The human-readable prefixes are cosmetic; the UUID
// suffix carries the uniqueness.

func NewOrderNumber() string {
	return "ORD-" + time.Now().UTC().Format("200601021504") + "-" + uuidSuffix(8)
}

func NewPaymentID() string {
	return "PAY-" + uuidSuffix(8) + "-" + uuidSuffix(4)
}

func NewRefundID() string {
	return "REF-" + uuidSuffix(8) + "-" + uuidSuffix(4)
}

func NewTrackingNumber() string {
	return "TRK-" + uuidSuffix(12)
}

func uuidSuffix(n int) string {
	s := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return s[:n]
}
