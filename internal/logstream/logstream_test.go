package logstream

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPublish_DeliversToLateSubscriberOnly(t *testing.T) {
	lc := New("test")

	lc.Publish("dropped before subscribe")

	sub := lc.Subscribe()
	lc.Publish("hello")

	select {
	case line := <-sub:
		require.Equal(t, "hello", line)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for published line")
	}
}

func TestClose_ClosesAllSubscribers(t *testing.T) {
	lc := New("test")
	sub := lc.Subscribe()

	lc.Close()

	_, ok := <-sub
	require.False(t, ok)
}
