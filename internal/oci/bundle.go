// Package oci writes the self-hosting OCI bundle produced by `auraed
// spawn --output <dir>`: a directory containing config.json and a
// rootfs/ tree whose rootfs/bin/auraed is the current binary,
// hard-linked to rootfs/bin/init so it can run as PID 1 of a fresh
// container.
//
// Grounded on opencontainers/runtime-spec's specs-go types; see
// DESIGN.md for the grounding notes.
package oci

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	specs "github.com/opencontainers/runtime-spec/specs-go"
)

// SpecVersion is the OCI runtime-spec version this bundle declares.
const SpecVersion = "1.0.2-dev"

// bundleDirs are the directories created under rootfs/.
var bundleDirs = []string{"bin", "dev", "mnt", "proc", "sys"}

// capabilitySet is the bounding/effective/inheritable/permitted/ambient
// capability list granted to the container process.
var capabilitySet = []string{
	"CAP_AUDIT_WRITE",
	"CAP_NET_BIND_SERVICE",
	"CAP_KILL",
}

// maskedPaths are masked out of the container's /proc and /sys view.
var maskedPaths = []string{
	"/proc/acpi",
	"/proc/kcore",
	"/proc/keys",
	"/sys/firmware",
}

// readonlyPaths are mounted read-only inside the container.
var readonlyPaths = []string{
	"/proc/bus",
	"/proc/sys",
	"/proc/sysrq-trigger",
}

// WriteBundle writes a complete OCI bundle at outputDir: config.json
// plus a rootfs/ tree containing auraedBinary copied to
// rootfs/bin/auraed (mode 0o755) and hard-linked to rootfs/bin/init.
func WriteBundle(outputDir, auraedBinary string) error {
	rootfs := filepath.Join(outputDir, "rootfs")

	for _, dir := range bundleDirs {
		if err := os.MkdirAll(filepath.Join(rootfs, dir), 0o755); err != nil {
			return fmt.Errorf("oci: mkdir %s: %w", dir, err)
		}
	}

	auraedPath := filepath.Join(rootfs, "bin", "auraed")
	if err := copyFile(auraedBinary, auraedPath, 0o755); err != nil {
		return fmt.Errorf("oci: install auraed binary: %w", err)
	}

	initPath := filepath.Join(rootfs, "bin", "init")
	_ = os.Remove(initPath)

	if err := os.Link(auraedPath, initPath); err != nil {
		return fmt.Errorf("oci: hard link init -> auraed: %w", err)
	}

	config := buildConfig()

	encoded, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("oci: encode config.json: %w", err)
	}

	if err := os.WriteFile(filepath.Join(outputDir, "config.json"), encoded, 0o644); err != nil {
		return fmt.Errorf("oci: write config.json: %w", err)
	}

	return nil
}

func buildConfig() *specs.Spec {
	return &specs.Spec{
		Version: SpecVersion,
		Root: &specs.Root{
			Path:     "rootfs",
			Readonly: false,
		},
		Process: &specs.Process{
			Terminal: false,
			Args:     []string{"init"},
			Cwd:      "/",
			Capabilities: &specs.LinuxCapabilities{
				Bounding:    capabilitySet,
				Effective:   capabilitySet,
				Inheritable: capabilitySet,
				Permitted:   capabilitySet,
				Ambient:     capabilitySet,
			},
		},
		Mounts: mountSpecs(),
		Linux: &specs.Linux{
			Namespaces: []specs.LinuxNamespace{
				{Type: specs.PIDNamespace},
				{Type: specs.NetworkNamespace},
				{Type: specs.IPCNamespace},
				{Type: specs.UTSNamespace},
				{Type: specs.MountNamespace},
			},
			MaskedPaths:   maskedPaths,
			ReadonlyPaths: readonlyPaths,
		},
		Hostname: "auraed",
		Annotations: map[string]string{
			"io.aurae.self-hosting": "true",
		},
	}
}

// mountSpecs mirrors the PID-1 mount sequence as OCI bundle mounts so
// the same filesystem layout exists whether auraed starts from a real
// kernel or this self-hosting rootfs.
func mountSpecs() []specs.Mount {
	return []specs.Mount{
		{Destination: "/dev/pts", Type: "devpts", Source: "devpts"},
		{Destination: "/sys", Type: "sysfs", Source: "sysfs"},
		{Destination: "/proc", Type: "proc", Source: "proc"},
		{Destination: "/run", Type: "tmpfs", Source: "tmpfs"},
		{Destination: "/sys/fs/cgroup", Type: "cgroup2", Source: "cgroup2"},
		{Destination: "/sys/kernel/debug", Type: "debugfs", Source: "debugfs"},
	}
}

func copyFile(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	_ = os.Remove(dst)

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}

	return out.Chmod(mode)
}
