// Package search runs a pattern over every region of a target address space
package search

import (
	"context"
	"fmt"
	"sync"

	"memedit/pattern"
	"memedit/process"
	"memedit/process/memory_map"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"github.com/google/uuid"
)

// Target is what a search needs from an attached process
type Target interface {
	process.MemoryReader
	memory_map.RegionQuerier
}

// State of a Coordinator
type State int

const (
	StateIdle State = iota
	StateSearching
	StateCompleted
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSearching:
		return "searching"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Progress is reported after every region
type Progress struct {
	Done     int     // regions processed, skipped ones included
	Total    int     // regions in the snapshot taken at search start
	Matches  int     // matches so far
	Fraction float64 // Done/Total, 1.0 when there are no regions
}

// Result of one search
type Result struct {
	ID           uuid.UUID
	Addresses    []process.ProcessMemoryAddress // region order, then offset order
	Regions      int                            // regions in the snapshot
	Scanned      int                            // regions read and matched
	Skipped      int                            // regions filtered out or unreadable
	BytesScanned uint64
	Cancelled    bool
	Truncated    bool // stopped early at the result limit
}

// scanChunkSize bounds a single read while scanning a region
const scanChunkSize = 4 << 20

type options struct {
	progress      func(Progress)
	readableOnly  bool
	maxRegionSize uint64
	maxResults    int
	chunkSize     uint64
}

// Option configures a single search
type Option func(*options)

// WithProgress sets a callback invoked after every region. It runs on the searching goroutine.
func WithProgress(fn func(Progress)) Option {
	return func(o *options) {
		o.progress = fn
	}
}

// WithReadableOnly skips regions whose permissions lack 'r'. It defaults to true.
func WithReadableOnly(readableOnly bool) Option {
	return func(o *options) {
		o.readableOnly = readableOnly
	}
}

// WithMaxRegionSize skips regions larger than size bytes. Zero means no limit.
func WithMaxRegionSize(size uint64) Option {
	return func(o *options) {
		o.maxRegionSize = size
	}
}

// WithMaxResults stops collecting once n matches were found. Zero means no limit.
func WithMaxResults(n int) Option {
	return func(o *options) {
		o.maxResults = n
	}
}

// Coordinator runs at most one search at a time
type Coordinator struct {
	mu    sync.Mutex
	state State
	log   *logger.Logger
}

func NewCoordinator() *Coordinator {
	return &Coordinator{
		state: StateIdle,
		log:   logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "search")),
	}
}

func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Coordinator) begin() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateSearching {
		return process.ErrSearchInProgress
	}
	c.state = StateSearching
	return nil
}

func (c *Coordinator) finish(res Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if res.Cancelled {
		c.state = StateCancelled
	} else {
		c.state = StateCompleted
	}
}

// Search runs spec over every region of target and blocks until it is done.
// Cancelling ctx ends the search at the next region boundary; the matches found
// so far are returned with Result.Cancelled set and a nil error.
func (c *Coordinator) Search(ctx context.Context, target Target, spec pattern.Spec, opts ...Option) (Result, error) {
	if spec.Len() == 0 {
		return Result{}, fmt.Errorf("%w: empty pattern", process.ErrInvalidPattern)
	}
	if err := c.begin(); err != nil {
		return Result{}, err
	}

	res := c.run(ctx, uuid.New(), target, spec, buildOptions(opts))
	c.finish(res)
	return res, nil
}

func buildOptions(opts []Option) options {
	o := options{
		progress:     func(Progress) {},
		readableOnly: true,
		chunkSize:    scanChunkSize,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.progress == nil {
		o.progress = func(Progress) {}
	}
	return o
}

func (c *Coordinator) run(ctx context.Context, id uuid.UUID, target Target, spec pattern.Spec, o options) Result {
	res := Result{ID: id}
	tag := id.String()[:8]

	regions, err := memory_map.Enumerate(target)
	if err != nil {
		c.log.Warn("search ", tag, " region enumeration stopped early: ", err)
	}
	res.Regions = len(regions)

	c.log.Infoln("search", tag, "started:", spec.Kind(), spec.String(), "over", len(regions), "regions")

	report := func(done int) {
		fraction := 1.0
		if len(regions) > 0 {
			fraction = float64(done) / float64(len(regions))
		}
		o.progress(Progress{Done: done, Total: len(regions), Matches: len(res.Addresses), Fraction: fraction})
	}

	done := 0
	for _, region := range regions {
		if ctx.Err() != nil {
			res.Cancelled = true
			break
		}
		if o.maxResults > 0 && len(res.Addresses) >= o.maxResults {
			res.Truncated = true
			break
		}

		if c.scanRegion(ctx, tag, target, spec, region, o, &res) {
			res.Scanned++
		} else {
			res.Skipped++
		}

		done++
		report(done)
	}

	if res.Cancelled {
		c.log.Infoln("search", tag, "cancelled after", done, "of", len(regions), "regions with", len(res.Addresses), "matches")
		return res
	}

	if done < len(regions) || len(regions) == 0 {
		report(len(regions))
	}

	c.log.Infoln("search", tag, "complete, found", len(res.Addresses), "matches in", res.Scanned, "regions")
	return res
}

// scanRegion reads one region in chunks and appends its matches. Consecutive chunks
// overlap by the pattern length minus one so matches across a chunk boundary are found.
// A failed read or a cancellation inside the region drops the region's matches.
// It reports false when the region was skipped.
func (c *Coordinator) scanRegion(ctx context.Context, tag string, target Target, spec pattern.Spec, region memory_map.MemoryRegion, o options, res *Result) bool {
	if o.readableOnly && !region.IsReadable() {
		return false
	}
	if o.maxRegionSize > 0 && region.Size > o.maxRegionSize {
		c.log.Debugln("search", tag, "skipping oversized region", region.String())
		return false
	}

	overlap := uint64(spec.Len() - 1)
	var found []process.ProcessMemoryAddress

	for off := uint64(0); off < region.Size; {
		if off > 0 && ctx.Err() != nil {
			return false
		}

		remaining := region.Size - off
		step := min(o.chunkSize, remaining)
		size := min(step+overlap, remaining)

		data, err := target.ReadMemory(process.ProcessMemoryAddress(region.Address+off), process.ProcessMemorySize(size))
		if err != nil {
			c.log.Debugln("search", tag, "failed to read region", region.String(), "at offset", off, err)
			return false
		}

		for _, i := range spec.Find(data) {
			// matches starting in the overlap belong to the next chunk
			if uint64(i) >= step {
				break
			}
			found = append(found, process.ProcessMemoryAddress(region.Address+off+uint64(i)))
		}
		off += step
	}

	if o.maxResults > 0 {
		found = found[:min(len(found), o.maxResults-len(res.Addresses))]
	}
	res.Addresses = append(res.Addresses, found...)
	res.BytesScanned += region.Size
	return true
}
