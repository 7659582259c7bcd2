package envutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGet(t *testing.T) {
	t.Run("returns exact key when set", func(t *testing.T) {
		t.Setenv("NOTIFY_TEST_KEY", "exact")
		t.Setenv("MEDIBOOK_NOTIFY_TEST_KEY", "prefixed")

		assert.Equal(t, "exact", Get("NOTIFY_TEST_KEY", "fallback"))
	})

	t.Run("falls back to MEDIBOOK_ prefix", func(t *testing.T) {
		t.Setenv("MEDIBOOK_NOTIFY_TEST_KEY2", "prefixed")

		assert.Equal(t, "prefixed", Get("NOTIFY_TEST_KEY2", "fallback"))
	})

	t.Run("returns fallback when neither exists", func(t *testing.T) {
		assert.Equal(t, "fallback", Get("NOTIFY_TEST_KEY_MISSING", "fallback"))
	})

	t.Run("does not double prefix", func(t *testing.T) {
		t.Setenv("MEDIBOOK_NOTIFY_TEST_KEY3", "value")

		assert.Equal(t, "value", Get("MEDIBOOK_NOTIFY_TEST_KEY3", "fallback"))
	})
}
