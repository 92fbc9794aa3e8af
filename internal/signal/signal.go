// Package signal implements the eBPF perf-buffer fan-out that streams
// POSIX signals delivered anywhere on the host out to RPC subscribers.
// It loads a tracepoint program on signal:signal_generate and reads
// its per-CPU perf buffers into a single broadcast channel.
//
// Follows cilium/ebpf's documented collection-load/perf.Reader
// surface directly; see DESIGN.md for the grounding notes.
package signal

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/cilium/ebpf"
	"github.com/cilium/ebpf/link"
	"github.com/cilium/ebpf/perf"

	"github.com/aurae-runtime/auraed/internal/aeerror"
	"github.com/aurae-runtime/auraed/internal/auraelog"
)

// Event is a single POSIX signal delivery observed by the kernel
// tracepoint.
type Event struct {
	Pid   uint32
	Signr uint32
}

// eventSize is the fixed record size the tracepoint program writes:
// two little-endian uint32s, matching Event's layout.
const eventSize = 8

// perCPUBufferPages is the per-CPU perf-buffer size in pages.
const perCPUBufferPages = 2

// objectProgramName is the name of the tracepoint program inside the
// prebuilt eBPF object that Load opens.
const objectProgramName = "signal_generate"

// ErrUnavailable is returned by Load when the eBPF object cannot be
// loaded (no compatible kernel, missing object file, insufficient
// privilege). A nested daemon never attempts to load the pipeline at
// all; in either case GetPosixSignalsStream returns the Unimplemented
// error instead of silently dropping events.
var ErrUnavailable = errors.New("signal: eBPF pipeline unavailable")

// Fanout owns the loaded eBPF program, the single perf reader spanning
// every online CPU's ring buffer, and the broadcast channel collecting
// its events.
type Fanout struct {
	coll   *ebpf.Collection
	tp     link.Link
	reader *perf.Reader

	mu   sync.Mutex
	subs map[chan Event]filter

	closed chan struct{}
	wg     sync.WaitGroup

	// resolver maps a pid to the cgroup path owning it, used by
	// Subscribe's cell-scoped filtering.
	resolver *cgroupResolver
}

type filter struct {
	cellPath string // empty means unfiltered
}

// Load builds the tracepoint attachment and starts the single reader
// task spanning every online CPU's ring buffer. objectPath is the
// prebuilt BPF ELF object containing the signal_generate tracepoint
// program; cgroupRoot seeds the inode cache used for cell-scoped
// filtering.
func Load(objectPath, cgroupRoot string) (*Fanout, error) {
	specFile, err := os.Open(objectPath)
	if err != nil {
		return nil, fmt.Errorf("%w: open object: %v", ErrUnavailable, err)
	}
	defer func() { _ = specFile.Close() }()

	spec, err := ebpf.LoadCollectionSpecFromReader(specFile)
	if err != nil {
		return nil, fmt.Errorf("%w: parse object: %v", ErrUnavailable, err)
	}

	coll, err := ebpf.NewCollection(spec)
	if err != nil {
		return nil, fmt.Errorf("%w: load collection: %v", ErrUnavailable, err)
	}

	prog, ok := coll.Programs[objectProgramName]
	if !ok {
		coll.Close()
		return nil, fmt.Errorf("%w: program %q not found in object", ErrUnavailable, objectProgramName)
	}

	tp, err := link.Tracepoint("signal", "signal_generate", prog, nil)
	if err != nil {
		coll.Close()
		return nil, fmt.Errorf("%w: attach tracepoint: %v", ErrUnavailable, err)
	}

	eventsMap, ok := coll.Maps["events"]
	if !ok {
		tp.Close()
		coll.Close()

		return nil, fmt.Errorf("%w: perf event map %q not found", ErrUnavailable, "events")
	}

	f := &Fanout{
		coll:     coll,
		tp:       tp,
		subs:     map[chan Event]filter{},
		closed:   make(chan struct{}),
		resolver: newCgroupResolver(cgroupRoot),
	}

	// perf.Reader already opens one ring buffer per possible CPU against
	// this map and multiplexes them internally via epoll inside a single
	// Read() loop (record.CPU reports which physical CPU produced a
	// given record); a second, independent Reader on the same map would
	// receive every event again, not share the stream. One reader is the
	// whole fan-out.
	pageSize := os.Getpagesize()
	perCPUSize := pageSize * perCPUBufferPages

	reader, err := perf.NewReaderWithOptions(eventsMap, perCPUSize, perf.ReaderOptions{})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: open perf reader: %v", ErrUnavailable, err)
	}

	f.reader = reader

	f.wg.Add(1)
	go f.readLoop(reader)

	return f, nil
}

// readLoop drains the perf buffer, spanning every online CPU, until
// Close or an unrecoverable read error; it is not restarted within
// this process's lifetime once it exits.
func (f *Fanout) readLoop(reader *perf.Reader) {
	defer f.wg.Done()

	for {
		record, err := reader.Read()
		if err != nil {
			if errors.Is(err, perf.ErrClosed) {
				return
			}

			auraelog.Warn("signal perf reader error, not restarting", auraelog.Ctx{"error": err.Error()})

			return
		}

		if record.LostSamples > 0 {
			auraelog.Warn("signal events lost", auraelog.Ctx{"lost": record.LostSamples, "cpu": record.CPU})
			continue
		}

		if len(record.RawSample) < eventSize {
			continue
		}

		evt := Event{
			Pid:   binary.LittleEndian.Uint32(record.RawSample[0:4]),
			Signr: binary.LittleEndian.Uint32(record.RawSample[4:8]),
		}

		f.dispatch(evt)
	}
}

// dispatch fans evt out to every subscriber whose filter matches. If
// there are zero subscribers, the event is dropped before any work is
// done.
func (f *Fanout) dispatch(evt Event) {
	f.mu.Lock()
	if len(f.subs) == 0 {
		f.mu.Unlock()
		return
	}

	subs := make(map[chan Event]filter, len(f.subs))
	for ch, flt := range f.subs {
		subs[ch] = flt
	}
	f.mu.Unlock()

	for ch, flt := range subs {
		if flt.cellPath != "" && !f.resolver.pidInCell(evt.Pid, flt.cellPath) {
			continue
		}

		select {
		case ch <- evt:
		default:
			auraelog.Warn("signal subscriber lagging, event dropped", auraelog.Ctx{"pid": evt.Pid})
		}
	}
}

// Subscribe registers a new receiver, optionally scoped to one cell's
// cgroup; an empty cellPath receives every event.
func (f *Fanout) Subscribe(cellPath string) (<-chan Event, func()) {
	ch := make(chan Event, 64)

	f.mu.Lock()
	f.subs[ch] = filter{cellPath: cellPath}
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()

		if _, ok := f.subs[ch]; ok {
			delete(f.subs, ch)
			close(ch)
		}
	}

	return ch, cancel
}

// Close tears down the perf reader and the tracepoint attachment.
func (f *Fanout) Close() {
	close(f.closed)

	if f.reader != nil {
		_ = f.reader.Close()
	}

	f.wg.Wait()

	if f.tp != nil {
		_ = f.tp.Close()
	}

	if f.coll != nil {
		f.coll.Close()
	}
}

// Unimplemented is the error GetPosixSignalsStream returns when this
// daemon never loaded the pipeline (nested daemon, or Load failed),
// rather than silently dropping events. It wraps ErrUnavailable under
// aeerror's validation code, so the server answers with HTTP 400; there
// is no separate "unimplemented" error code.
func Unimplemented() error {
	return aeerror.Validation("posix_signals_stream", ErrUnavailable)
}
