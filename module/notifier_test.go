package module_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ArTombado/rsnano-node/module"
)

func TestNotifierCoalesces(t *testing.T) {
	notifier := module.NewNotifier()

	// many notifications collapse into a single pending one
	for i := 0; i < 10; i++ {
		notifier.Notify()
	}

	select {
	case <-notifier.Channel():
	default:
		t.Fatal("expected a pending notification")
	}

	// drained; no further notification is pending
	select {
	case <-notifier.Channel():
		t.Fatal("expected no pending notification")
	default:
	}

	// a new notification after draining wakes the worker again
	notifier.Notify()
	select {
	case <-notifier.Channel():
	default:
		t.Fatal("expected a pending notification")
	}
}

func TestNotifierPassedByValue(t *testing.T) {
	notifier := module.NewNotifier()
	copied := notifier

	copied.Notify()
	select {
	case <-notifier.Channel():
	default:
		t.Fatal("copies must share the underlying channel")
	}
	assert.Equal(t, notifier.Channel(), copied.Channel())
}
