package queue

import (
	"errors"
	"fmt"
	"time"

	"github.com/yanet-platform/diskqueue/datapage"
	"github.com/yanet-platform/diskqueue/manager"
)

// GroupedReceiver advances a per-group, per-page consumer counter stored on
// the page itself, so every receiver sharing a group id fans out the
// stream: each message is delivered to exactly one receiver in the group,
// per page.
type GroupedReceiver struct {
	group uint32
	mgr   *manager.Manager
	seq   uint64
	page  *datapage.DataPage
}

// NewGroupedReceiver creates a grouped receiver for the given group index
// (< the page's Groups geometry), positioned at sequence 0 for a fresh
// store or the manager's latest page at construction time.
func NewGroupedReceiver(group uint32, mgr *manager.Manager) (*GroupedReceiver, error) {
	seq, page := mgr.GetLastDataPage()
	return &GroupedReceiver{group: group, mgr: mgr, seq: seq, page: page}, nil
}

// Pop claims the next slot for this receiver's group and blocks until it is
// published, rotating across pages as needed.
func (r *GroupedReceiver) Pop() ([]byte, error) {
	for {
		c := r.page.IncrementGroupCount(r.group, 1)
		data, err := r.page.Get(c)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, datapage.ErrEndOfDataPage) {
			return nil, err
		}
		if err := r.advance(); err != nil {
			return nil, err
		}
	}
}

// PopWithTimeout behaves like Pop but returns (nil, nil) if no message
// appears within timeout. The claimed slot is not released: a later call
// claims the next one, and no other receiver in the group is handed that
// slot, so a message published there later is not delivered to the group.
func (r *GroupedReceiver) PopWithTimeout(timeout time.Duration) ([]byte, error) {
	for {
		c := r.page.IncrementGroupCount(r.group, 1)
		data, err := r.page.GetWithTimeout(c, timeout)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, datapage.ErrEndOfDataPage) {
			return nil, err
		}
		if err := r.advance(); err != nil {
			return nil, err
		}
	}
}

func (r *GroupedReceiver) advance() error {
	seq, page, err := r.mgr.GetOrCreateDataPage(r.seq + 1)
	if err != nil {
		return fmt.Errorf("queue: grouped receiver rotate to page %d: %w", r.seq+1, err)
	}
	r.seq, r.page = seq, page
	return nil
}
