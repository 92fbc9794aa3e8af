package oci

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	specs "github.com/opencontainers/runtime-spec/specs-go"
)

func TestWriteBundle(t *testing.T) {
	srcDir := t.TempDir()
	fakeBinary := filepath.Join(srcDir, "auraed")
	require.NoError(t, os.WriteFile(fakeBinary, []byte("#!/bin/sh\necho fake\n"), 0o644))

	outDir := t.TempDir()
	require.NoError(t, WriteBundle(outDir, fakeBinary))

	for _, dir := range bundleDirs {
		info, err := os.Stat(filepath.Join(outDir, "rootfs", dir))
		require.NoError(t, err)
		require.True(t, info.IsDir())
	}

	auraedPath := filepath.Join(outDir, "rootfs", "bin", "auraed")
	initPath := filepath.Join(outDir, "rootfs", "bin", "init")

	auraedInfo, err := os.Stat(auraedPath)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o755), auraedInfo.Mode().Perm())

	initInfo, err := os.Stat(initPath)
	require.NoError(t, err)
	require.True(t, os.SameFile(auraedInfo, initInfo), "init must be hard-linked to auraed")

	raw, err := os.ReadFile(filepath.Join(outDir, "config.json"))
	require.NoError(t, err)

	var spec specs.Spec
	require.NoError(t, json.Unmarshal(raw, &spec))
	require.Equal(t, SpecVersion, spec.Version)
	require.Equal(t, []string{"init"}, spec.Process.Args)
	require.Len(t, spec.Mounts, 6)
}

func TestWriteBundle_OverwritesExisting(t *testing.T) {
	srcDir := t.TempDir()
	fakeBinary := filepath.Join(srcDir, "auraed")
	require.NoError(t, os.WriteFile(fakeBinary, []byte("v1"), 0o644))

	outDir := t.TempDir()
	require.NoError(t, WriteBundle(outDir, fakeBinary))

	require.NoError(t, os.WriteFile(fakeBinary, []byte("v2-longer-content"), 0o644))
	require.NoError(t, WriteBundle(outDir, fakeBinary))

	data, err := os.ReadFile(filepath.Join(outDir, "rootfs", "bin", "auraed"))
	require.NoError(t, err)
	require.Equal(t, "v2-longer-content", string(data))
}
