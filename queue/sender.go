// Package queue implements the thin state machines that chase the active
// page and present push/pop semantics to callers: Sender, GroupedReceiver,
// and AnonymousReceiver.
package queue

import (
	"errors"
	"fmt"

	"github.com/yanet-platform/diskqueue/datapage"
	"github.com/yanet-platform/diskqueue/manager"
)

// Sender holds the producer's current page and retries on the next page
// when the current one reports full.
type Sender struct {
	mgr  *manager.Manager
	seq  uint64
	page *datapage.DataPage
}

// NewSender creates a sender positioned at sequence 0 (a fresh store) or the
// manager's latest page at construction time.
func NewSender(mgr *manager.Manager) (*Sender, error) {
	seq, page := mgr.GetLastDataPage()
	return &Sender{mgr: mgr, seq: seq, page: page}, nil
}

// Push appends data to the stream. It never blocks on page fullness: a full
// current page causes the sender to rotate to the next page and retry,
// terminating once a page admits the message (every fresh page admits at
// least one message that fits in it). A message too large for an empty page
// is rejected with an error instead.
func (s *Sender) Push(data []byte) error {
	// A fresh page admits a message only if it and its 4-byte length prefix
	// stay below Slots*ExpectedMessageSize bytes.
	params := s.page.Params()
	if uint64(len(data))+4 >= uint64(params.Slots)*uint64(params.ExpectedMessageSize) {
		return fmt.Errorf("queue: message of %d bytes does not fit in a page", len(data))
	}
	for {
		err := s.page.Push(data)
		if err == nil {
			return nil
		}
		if !errors.Is(err, datapage.ErrDataPageFull) {
			return err
		}

		seq, page, mErr := s.mgr.GetOrCreateDataPage(s.seq + 1)
		if mErr != nil {
			return fmt.Errorf("queue: sender rotate to page %d: %w", s.seq+1, mErr)
		}
		s.seq, s.page = seq, page
	}
}
