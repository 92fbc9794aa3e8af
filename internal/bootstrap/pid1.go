package bootstrap

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"

	"github.com/aurae-runtime/auraed/internal/auraelog"
)

// banner is printed to stdout before the logger is attached: print
// banner, then init logging as pid 1.
const banner = `
                                    auraed
   A distributed systems runtime daemon, running as PID 1.
`

// mountSpec is one entry of the PID-1 mount sequence.
type mountSpec struct {
	source, target, fstype string
	flags                  uintptr
}

// mountSequence is the fixed mount ordering: devpts, sysfs, proc,
// tmpfs at /run, cgroup2, debugfs.
var mountSequence = []mountSpec{
	{"devpts", "/dev/pts", "devpts", 0},
	{"sysfs", "/sys", "sysfs", 0},
	{"proc", "/proc", "proc", 0},
	{"tmpfs", "/run", "tmpfs", 0},
	{"cgroup2", "/sys/fs/cgroup", "cgroup2", 0},
	{"debugfs", "/sys/kernel/debug", "debugfs", 0},
}

// fdSymlinks mirrors /dev/fd, /dev/stdin, /dev/stdout, /dev/stderr into
// /proc/self/fd, the standard PID-1 convention.
var fdSymlinks = map[string]string{
	"/dev/fd":     "/proc/self/fd",
	"/dev/stdin":  "/proc/self/fd/0",
	"/dev/stdout": "/proc/self/fd/1",
	"/dev/stderr": "/proc/self/fd/2",
}

// loopbackLinkTimeout bounds how long InitPID1 waits for eth0 to appear
// before giving up.
const loopbackLinkTimeout = 3 * time.Second

// PowerButtonDevice is the standard ACPI power-button input device PID-1
// listens on.
const PowerButtonDevice = "/dev/input/event0"

// InitPID1 performs the full PID-1 bring-up in a fixed order: banner,
// logging, mounts, device symlinks, loopback network, power-button
// listener, then returns the default TCP listener. Each mount failure
// is surfaced; the power-button listener's failure is logged but
// non-fatal.
func InitPID1(verbose bool) (net.Listener, error) {
	fmt.Fprint(os.Stdout, banner)

	auraelog.SetVerbose(verbose)
	log := auraelog.AddContext(auraelog.Ctx{"mode": "pid1"})

	if err := runMounts(log); err != nil {
		return nil, err
	}

	if err := linkFdSymlinks(log); err != nil {
		return nil, err
	}

	if err := bringUpLoopback(log); err != nil {
		log.Warn("loopback bring-up failed")
	}

	go listenPowerButton(log)

	listener, err := net.Listen("tcp", DefaultTCPAddr)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: listen %s: %w", DefaultTCPAddr, err)
	}

	log.Info("TCP Access Socket created")

	return listener, nil
}

func runMounts(log *logrus.Entry) error {
	if err := os.MkdirAll("/dev/pts", 0o755); err != nil {
		return fmt.Errorf("bootstrap: mkdir /dev/pts: %w", err)
	}

	for _, m := range mountSequence {
		if err := os.MkdirAll(m.target, 0o755); err != nil {
			return fmt.Errorf("bootstrap: mkdir %s: %w", m.target, err)
		}

		if err := unix.Mount(m.source, m.target, m.fstype, m.flags, ""); err != nil {
			return fmt.Errorf("bootstrap: mount %s at %s: %w", m.fstype, m.target, err)
		}

		log.Debug("mounted " + m.target)
	}

	return nil
}

func linkFdSymlinks(log *logrus.Entry) error {
	for link, target := range fdSymlinks {
		_ = os.Remove(link)

		if err := os.Symlink(target, link); err != nil {
			return fmt.Errorf("bootstrap: symlink %s -> %s: %w", link, target, err)
		}
	}

	log.Debug("device fd symlinks created")

	return nil
}

// bringUpLoopback brings up a default IPv6 loopback on eth0 with a
// link-local address and gateway, using netlink in place of shelling
// out to `ip`.
func bringUpLoopback(log *logrus.Entry) error {
	link, err := waitForLink("eth0", loopbackLinkTimeout)
	if err != nil {
		return err
	}

	if err := netlink.LinkSetUp(link); err != nil {
		return fmt.Errorf("bootstrap: set eth0 up: %w", err)
	}

	addr, err := netlink.ParseAddr("fe80::2/64")
	if err != nil {
		return err
	}

	if err := netlink.AddrAdd(link, addr); err != nil {
		return fmt.Errorf("bootstrap: add address to eth0: %w", err)
	}

	route := &netlink.Route{
		LinkIndex: link.Attrs().Index,
		Gw:        net.ParseIP("fe80::1"),
	}

	if err := netlink.RouteAdd(route); err != nil {
		return fmt.Errorf("bootstrap: add default route via eth0: %w", err)
	}

	log.Info("eth0 loopback network configured")

	return nil
}

func waitForLink(name string, timeout time.Duration) (netlink.Link, error) {
	deadline := time.Now().Add(timeout)

	for {
		link, err := netlink.LinkByName(name)
		if err == nil {
			return link, nil
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("bootstrap: link %s did not appear within %s: %w", name, timeout, err)
		}

		time.Sleep(100 * time.Millisecond)
	}
}

// listenPowerButton opens the ACPI power-button input device and logs
// a shutdown request when pressed. Failure to open the device is
// logged but never fatal to daemon startup.
func listenPowerButton(log *logrus.Entry) {
	f, err := os.Open(PowerButtonDevice)
	if err != nil {
		log.Warn("power button device unavailable: " + err.Error())
		return
	}
	defer func() { _ = f.Close() }()

	buf := make([]byte, inputEventSize)

	for {
		if _, err := f.Read(buf); err != nil {
			log.Warn("power button read error: " + err.Error())
			return
		}

		log.Info("power button event received")
	}
}

// inputEventSize is sizeof(struct input_event) on a 64-bit Linux kernel
// (two timeval longs, then type/code/value: 16+2+2+4).
const inputEventSize = 24
