package http

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserOrdersCacheKeys(t *testing.T) {
	assert.Equal(t, "orders:user:7:PAID", userOrdersKey("7", "PAID"))
	assert.Equal(t, "orders:user:7:", userOrdersKey("7", ""))

	// The scan pattern is prefix-shaped; every key it can match starts with
	// the pattern minus the trailing wildcard.
	prefix := strings.TrimSuffix(userOrdersPattern(1), "*")

	assert.True(t, strings.HasPrefix(userOrdersKey("1", "PAID"), prefix))
	assert.True(t, strings.HasPrefix(userOrdersKey("1", ""), prefix))

	// User 1's invalidation must not touch user 12's entries.
	assert.False(t, strings.HasPrefix(userOrdersKey("12", "PAID"), prefix))
	assert.False(t, strings.HasPrefix(userOrdersKey("12", ""), prefix))
}
