package isolation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetup_NoopWithoutIsolateProcess(t *testing.T) {
	require.NoError(t, Setup(Controls{}))
}

func TestIsolateProcess_NoopWithoutEitherFlag(t *testing.T) {
	require.NoError(t, IsolateProcess(Controls{}))
}
