package cri

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUnimplemented_AllMethodsFail(t *testing.T) {
	ctx := context.Background()

	_, err := Unimplemented.RunPodSandbox(ctx, "pod")
	require.Error(t, err)

	require.Error(t, Unimplemented.StopPodSandbox(ctx, "pod"))
	require.Error(t, Unimplemented.RemovePodSandbox(ctx, "pod"))

	_, err = Unimplemented.CreateContainer(ctx, "pod", "echo hi")
	require.Error(t, err)

	require.Error(t, Unimplemented.StartContainer(ctx, "c"))
	require.Error(t, Unimplemented.StopContainer(ctx, "c"))
	require.Error(t, Unimplemented.RemoveContainer(ctx, "c"))
}
