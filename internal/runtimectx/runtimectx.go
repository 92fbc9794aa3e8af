// Package runtimectx defines the explicit context passed to
// constructors throughout the daemon, in place of a module-level
// singleton.
package runtimectx

// TLSPaths locates the PKI material used both to serve the local RPC
// surface and to dial child daemons.
type TLSPaths struct {
	ServerCrt string
	ServerKey string
	CACrt     string
}

// Runtime carries the paths and identity every constructor in the
// daemon needs: where the auraed binary lives, where runtime sockets
// and cgroups are rooted, and the PKI material for mTLS.
type Runtime struct {
	// AuraedPath is the path to the currently running auraed binary,
	// used to re-exec into a nested daemon.
	AuraedPath string

	// RuntimeDir holds the primary socket and per-cell nested sockets.
	RuntimeDir string

	// LibraryDir holds cached state (OCI bundles, etc).
	LibraryDir string

	// CgroupRoot is the cgroup-v2 mount point, normally /sys/fs/cgroup.
	CgroupRoot string

	TLS TLSPaths

	// Nested is true when this process was launched with --nested and
	// should skip PID-1 bring-up.
	Nested bool

	// Verbose enables debug-level logging.
	Verbose bool
}
