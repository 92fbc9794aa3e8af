package nesteddaemon

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aurae-runtime/auraed/internal/isolation"
	"github.com/aurae-runtime/auraed/internal/runtimectx"
)

// TestSpawn_TrueExecutable exercises the command construction and the
// kill-and-wait path against /bin/true instead of a real auraed
// binary. CLONE_NEWCGROUP is always set, which needs CAP_SYS_ADMIN, so
// the test is skipped when not running as root.
func TestSpawn_TrueExecutable(t *testing.T) {
	if os.Getuid() != 0 {
		t.Skip("requires CAP_SYS_ADMIN to create namespaces")
	}

	rt := runtimectx.Runtime{
		AuraedPath: "/bin/true",
		RuntimeDir: t.TempDir(),
	}

	n, err := Spawn("leaf", isolation.Controls{}, rt)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(n.ClientSocket(), rt.RuntimeDir))
	require.NoError(t, n.Kill())
}
