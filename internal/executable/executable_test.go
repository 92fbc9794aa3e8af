package executable

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStart_PublishesStdoutLines(t *testing.T) {
	exe := New(Spec{Name: "echo-test", Command: "echo hello; echo world"})

	sub := exe.Stdout.Subscribe()

	require.NoError(t, exe.Start())
	require.NoError(t, exe.Start(), "second Start must be a no-op")

	lines := collect(t, sub, 2)
	require.Equal(t, []string{"hello", "world"}, lines)

	require.NoError(t, exe.Kill())
	require.Equal(t, Stopped, exe.State())
}

func TestStart_Idempotent_AfterStop(t *testing.T) {
	exe := New(Spec{Name: "true-test", Command: "true"})

	require.NoError(t, exe.Start())
	require.NoError(t, exe.Kill())

	err := exe.Start()
	require.NoError(t, err)
	require.Equal(t, Stopped, exe.State())
}

func TestRegistry_DuplicateNameRejected(t *testing.T) {
	r := NewRegistry()

	_, err := r.Start(Spec{Name: "dup", Command: "sleep 1"})
	require.NoError(t, err)

	_, err = r.Start(Spec{Name: "dup", Command: "sleep 1"})
	require.Error(t, err)

	require.NoError(t, r.Stop("dup"))
}

func collect(t *testing.T, ch <-chan string, n int) []string {
	t.Helper()

	out := make([]string, 0, n)

	for len(out) < n {
		select {
		case line := <-ch:
			out = append(out, line)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out after collecting %d/%d lines", len(out), n)
		}
	}

	return out
}
