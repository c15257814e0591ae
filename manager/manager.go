// Package manager owns the on-disk ring of data pages for one process:
// enumerating existing pages at startup, handing callers the page for a
// requested sequence number, rotating to a fresh page when the current one
// fills, and reclaiming pages that fall off the retention window.
package manager

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gobwas/glob"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/yanet-platform/diskqueue/datapage"
)

// stem is the fixed prefix of every ring file: "<stem>.<seq>".
const stem = ".dp.data.maxi"

func fileName(seq uint64) string {
	return fmt.Sprintf("%s.%d", stem, seq)
}

// Stats is a point-in-time snapshot of ring state, returned to callers that
// need to report on a manager (the admin service in particular) without
// reaching into its internals.
type Stats struct {
	PageCount uint64
	Oldest    uint64
	MaxPages  uint64
}

type pageRef struct {
	seq  uint64
	page *datapage.DataPage
}

// Manager is a per-process handle to the on-disk ring described in spec
// §4.C. It is safe for concurrent use by multiple senders and receivers
// within one process; coordinating rotation across processes is explicitly
// out of scope (spec §9, "Cross-process rotation").
type Manager struct {
	directory string
	params    datapage.Params
	log       *zap.SugaredLogger
	pattern   glob.Glob

	maxPages  atomic.Uint64
	pageCount atomic.Uint64

	mu     sync.RWMutex
	oldest uint64
	ring   []pageRef // ordered oldest..newest, ring[i].seq == oldest+i

	reclaim chan uint64
}

// Option configures a Manager at construction.
type Option func(*Manager)

// WithLogger attaches a logger; the default is a no-op logger.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(m *Manager) { m.log = log }
}

// New enumerates directory for existing "<stem>.<seq>" files, maps the
// contiguous tail of pages they describe into the ring, and creates page 0
// if none exist. directory is created if absent.
func New(directory string, params datapage.Params, opts ...Option) (*Manager, error) {
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return nil, fmt.Errorf("manager: create directory %s: %w", directory, err)
	}

	pattern, err := glob.Compile(stem + ".*")
	if err != nil {
		return nil, fmt.Errorf("manager: compile ring file pattern: %w", err)
	}

	m := &Manager{
		directory: directory,
		params:    params,
		log:       zap.NewNop().Sugar(),
		pattern:   pattern,
		reclaim:   make(chan uint64),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.maxPages.Store(math.MaxUint64)

	maxSeq, count, err := m.scanExisting()
	if err != nil {
		return nil, err
	}

	oldest := uint64(0)
	if count > 0 {
		oldest = maxSeq - count + 1
	}
	m.oldest = oldest

	if count == 0 {
		page, err := m.openPage(0)
		if err != nil {
			return nil, err
		}
		m.ring = []pageRef{{seq: 0, page: page}}
		m.pageCount.Store(0)
		return m, nil
	}

	ring := make([]pageRef, 0, count)
	for seq := oldest; seq <= maxSeq; seq++ {
		page, err := m.openPage(seq)
		if err != nil {
			for _, r := range ring {
				r.page.Close()
			}
			return nil, err
		}
		ring = append(ring, pageRef{seq: seq, page: page})
	}
	m.ring = ring
	m.pageCount.Store(maxSeq)

	return m, nil
}

func (m *Manager) scanExisting() (maxSeq, count uint64, err error) {
	entries, err := os.ReadDir(m.directory)
	if err != nil {
		return 0, 0, fmt.Errorf("manager: read directory %s: %w", m.directory, err)
	}

	for _, e := range entries {
		if e.IsDir() || !m.pattern.Match(e.Name()) {
			continue
		}
		seqStr := strings.TrimPrefix(e.Name(), stem+".")
		seq, err := strconv.ParseUint(seqStr, 10, 64)
		if err != nil {
			m.log.Warnw("ignoring unrecognized ring file", "name", e.Name())
			continue
		}
		if count == 0 || seq > maxSeq {
			maxSeq = seq
		}
		count++
	}
	return maxSeq, count, nil
}

// openPage maps the file for seq, retrying transient I/O failures (e.g. a
// momentarily full inode table, or NFS hiccups on shared directories) with
// bounded exponential backoff rather than failing a producer's first hiccup.
func (m *Manager) openPage(seq uint64) (*datapage.DataPage, error) {
	path := filepath.Join(m.directory, fileName(seq))

	retry := backoff.ExponentialBackOff{
		InitialInterval:     backoff.DefaultInitialInterval,
		RandomizationFactor: backoff.DefaultRandomizationFactor,
		Multiplier:          backoff.DefaultMultiplier,
		MaxInterval:         2 * time.Second,
	}
	retry.Reset()

	const maxAttempts = 3
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(retry.NextBackOff())
		}
		page, err := datapage.Open(path, m.params)
		if err == nil {
			return page, nil
		}
		lastErr = err
		m.log.Warnw("failed to map ring page, retrying", "path", path, "attempt", attempt, "error", err)
	}
	return nil, lastErr
}

// SetMaxDataPages sets the retention bound. It must be called before any
// rotation that would cause eviction; the design does not retroactively
// evict pages that are already within the old, larger bound.
func (m *Manager) SetMaxDataPages(n uint64) {
	m.maxPages.Store(n)
}

// GetLastDataPage returns the most recently created page and its sequence
// number.
func (m *Manager) GetLastDataPage() (uint64, *datapage.DataPage) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	last := m.ring[len(m.ring)-1]
	return last.seq, last.page
}

// Stats returns a point-in-time snapshot of ring bookkeeping.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Stats{
		PageCount: m.pageCount.Load(),
		Oldest:    m.oldest,
		MaxPages:  m.maxPages.Load(),
	}
}

// GetOrCreateDataPage returns a mapped page for a caller chasing sequence n,
// per spec §4.C: creates the next page if n is beyond the ring, clamps n
// forward to the oldest retained page if the caller fell behind retention,
// and otherwise returns the existing page at n.
//
// Two concurrent callers that both observe n > pageCount may each create a
// new page; this is accepted, not prevented (spec §9, "Page ring rotation
// race") — callers key off the returned sequence number, not n itself.
func (m *Manager) GetOrCreateDataPage(n uint64) (uint64, *datapage.DataPage, error) {
	m.mu.RLock()
	pageCount := m.pageCount.Load()
	if n <= pageCount && n >= m.oldest {
		page := m.ring[n-m.oldest].page
		m.mu.RUnlock()
		return n, page, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// pageCount is the value seen on the fast path and is not re-read here:
	// a caller that saw n beyond it creates the next page even if another
	// caller created one in between.
	switch {
	case n > pageCount:
		newSeq := m.pageCount.Load() + 1
		page, err := m.openPage(newSeq)
		if err != nil {
			return 0, nil, fmt.Errorf("manager: create page %d: %w", newSeq, err)
		}
		m.ring = append(m.ring, pageRef{seq: newSeq, page: page})
		m.pageCount.Store(newSeq)

		maxPages := m.maxPages.Load()
		if maxPages > 0 && newSeq >= maxPages {
			evictSeq := newSeq - maxPages
			if evictSeq >= m.oldest && len(m.ring) > 0 && m.ring[0].seq == evictSeq {
				m.ring = m.ring[1:]
				m.oldest = evictSeq + 1
				select {
				case m.reclaim <- evictSeq:
				default:
					m.removeFile(evictSeq)
				}
			}
		}
		return newSeq, page, nil

	case n < m.oldest:
		return m.oldest, m.ring[0].page, nil

	default:
		return n, m.ring[n-m.oldest].page, nil
	}
}

func (m *Manager) removeFile(seq uint64) {
	path := filepath.Join(m.directory, fileName(seq))
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		m.log.Warnw("failed to reclaim ring file", "path", path, "error", err)
	}
}

// Run drains the background reclamation queue until ctx is done, deleting
// files for pages that rotation has already evicted from the ring. Running
// it decouples the unlink() cost from a producer's hot rotation path; if it
// is never started, eviction falls back to an inline os.Remove so retention
// is still enforced, just without the decoupling.
func (m *Manager) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case seq := <-m.reclaim:
			m.removeFile(seq)
		}
	}
}

// Close unmaps every page still held by the ring, aggregating any errors.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result *multierror.Error
	for _, r := range m.ring {
		if err := r.page.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
