package vms

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUnimplemented_AllMethodsFail(t *testing.T) {
	ctx := context.Background()

	_, err := Unimplemented.Create(ctx, "vm", 2, 512)
	require.Error(t, err)

	require.Error(t, Unimplemented.Start(ctx, "vm"))
	require.Error(t, Unimplemented.Stop(ctx, "vm"))
	require.Error(t, Unimplemented.Remove(ctx, "vm"))
}
