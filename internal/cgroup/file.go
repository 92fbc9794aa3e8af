package cgroup

import (
	"os"
	"strconv"
	"strings"
)

// writeFile and readInt are the direct cgroupfs I/O primitives, mirroring
// canonical-lxd/lxd/cgroup/file.go's fileReadWriter.Get/Set.

func writeFile(path string, value string) error {
	return os.WriteFile(path, []byte(value), 0o644)
}

func readInt(path string) (int64, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "max" {
		return -1, nil
	}

	return strconv.ParseInt(trimmed, 10, 64)
}
