package queue

import (
	"errors"
	"fmt"

	"github.com/yanet-platform/diskqueue/datapage"
	"github.com/yanet-platform/diskqueue/manager"
)

// AnonymousReceiver holds an instance-local counter instead of a shared
// per-page one: every anonymous receiver sees the full stream of messages
// on every page it visits, independent of any other receiver.
type AnonymousReceiver struct {
	anonCount uint32
	mgr       *manager.Manager
	seq       uint64
	page      *datapage.DataPage
}

// NewAnonymousReceiver creates an anonymous receiver positioned at sequence
// 0 for a fresh store or the manager's latest page at construction time.
func NewAnonymousReceiver(mgr *manager.Manager) (*AnonymousReceiver, error) {
	seq, page := mgr.GetLastDataPage()
	return &AnonymousReceiver{mgr: mgr, seq: seq, page: page}, nil
}

// Pop reads the next slot in this receiver's own sequence, rotating to the
// next page and resetting its local counter to 0 on end-of-page.
func (r *AnonymousReceiver) Pop() ([]byte, error) {
	for {
		c := r.anonCount
		r.anonCount++

		data, err := r.page.Get(c)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, datapage.ErrEndOfDataPage) {
			return nil, err
		}

		r.anonCount = 0
		seq, page, mErr := r.mgr.GetOrCreateDataPage(r.seq + 1)
		if mErr != nil {
			return nil, fmt.Errorf("queue: anonymous receiver rotate to page %d: %w", r.seq+1, mErr)
		}
		r.seq, r.page = seq, page
	}
}
