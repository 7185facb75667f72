// File: internal/browser/context_test.go
package browser

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ctxKey string

func TestCombineContextCarriesPrimaryValues(t *testing.T) {
	primary := context.WithValue(context.Background(), ctxKey("session"), "alpha")
	secondary := context.Background()

	combined, cancel := CombineContext(primary, secondary)
	defer cancel()

	assert.Equal(t, "alpha", combined.Value(ctxKey("session")))
}

func TestCombineContextCanceledBySecondary(t *testing.T) {
	secondary, secondaryCancel := context.WithCancel(context.Background())

	combined, cancel := CombineContext(context.Background(), secondary)
	defer cancel()

	secondaryCancel()

	select {
	case <-combined.Done():
	case <-time.After(time.Second):
		t.Fatal("combined context was not canceled by the secondary context")
	}
	require.Error(t, combined.Err())
}

func TestCombineContextCanceledByPrimary(t *testing.T) {
	primary, primaryCancel := context.WithCancel(context.Background())

	combined, cancel := CombineContext(primary, context.Background())
	defer cancel()

	primaryCancel()

	select {
	case <-combined.Done():
	case <-time.After(time.Second):
		t.Fatal("combined context was not canceled by the primary context")
	}
}

func TestDetachSurvivesParentCancellation(t *testing.T) {
	parent, cancel := context.WithCancel(
		context.WithValue(context.Background(), ctxKey("session"), "alpha"))

	detached := Detach(parent)
	cancel()

	assert.NoError(t, detached.Err())
	assert.Nil(t, detached.Done())
	assert.Equal(t, "alpha", detached.Value(ctxKey("session")))

	_, hasDeadline := detached.Deadline()
	assert.False(t, hasDeadline)
}
