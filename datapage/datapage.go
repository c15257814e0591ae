// Package datapage implements the data page: a fixed-layout, memory-mapped
// record container supporting concurrent lock-free append and blocking /
// timed / non-blocking read by sequence number.
//
// Layout, in declaration order (stable, relied upon by the mapping):
//
//	count_write_idx   uint64           (write_idx:u32 << 32 | count:u32)
//	receiver_group_count[Groups]  uint32 atomics
//	slot_table[Slots]             uint32 atomics, salted byte offsets
//	buf[Slots*ExpectedMessageSize]  uint8 record bytes
package datapage

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/yanet-platform/diskqueue/internal/futex"
	"github.com/yanet-platform/diskqueue/mmapcell"
)

// terminator is the slot-table sentinel meaning "the page ended early due to
// byte exhaustion before this slot was filled". Canonically u32::MAX.
const terminator = math.MaxUint32

// DataPage is one mapped file backing a ring of message slots.
type DataPage struct {
	params Params
	raw    *mmapcell.Raw

	countWriteIdx *uint64
	groupCounts   []uint32
	slotTable     []uint32
	buf           []byte

	bufBytes uint64
}

// Open maps path as a data page of the given geometry, creating and
// zero-filling the backing file if it does not already exist.
func Open(path string, params Params) (*DataPage, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}

	raw, err := mmapcell.OpenRaw(path, int64(params.totalBytes()))
	if err != nil {
		return nil, fmt.Errorf("datapage: open %s: %w", path, err)
	}

	p := &DataPage{
		params:   params,
		raw:      raw,
		bufBytes: params.bufBytes(),
	}
	p.countWriteIdx = (*uint64)(unsafe.Pointer(&raw.Data[0]))
	p.groupCounts = unsafe.Slice(
		(*uint32)(unsafe.Pointer(&raw.Data[params.offsetGroupCounts()])),
		params.Groups,
	)
	p.slotTable = unsafe.Slice(
		(*uint32)(unsafe.Pointer(&raw.Data[params.offsetSlotTable()])),
		params.Slots,
	)
	p.buf = raw.Data[params.offsetBuf():]

	return p, nil
}

// Close unmaps the page. Outstanding references in other goroutines or
// processes keep their own mapping valid; Close only releases this handle.
func (p *DataPage) Close() error {
	return p.raw.Close()
}

// Params returns the geometry this page was opened with.
func (p *DataPage) Params() Params {
	return p.params
}

// Push reserves a slot and a byte range with a single atomic add, then
// writes the length-prefixed payload into the reserved range and publishes
// the slot. It returns ErrDataPageFull if the page has exhausted its slot
// table or its byte buffer; in the byte-exhaustion case it also publishes
// and wakes the terminator so no concurrent reader is left sleeping.
func (p *DataPage) Push(data []byte) error {
	l := uint32(len(data))
	full := l + sizeofLenPrefix
	delta := (uint64(full) << 32) | 1

	after := atomic.AddUint64(p.countWriteIdx, delta)
	before := after - delta
	writeIdxPrev := uint32(before >> 32)
	countPrev := uint32(before & 0xffffffff)

	if countPrev >= p.params.Slots {
		return ErrDataPageFull
	}

	if uint64(writeIdxPrev)+uint64(full) >= p.bufBytes {
		atomic.StoreUint32(&p.slotTable[countPrev], terminator)
		futex.WakeAll(&p.slotTable[countPrev])
		return ErrDataPageFull
	}

	binary.LittleEndian.PutUint32(p.buf[writeIdxPrev:writeIdxPrev+sizeofLenPrefix], l)
	copy(p.buf[writeIdxPrev+sizeofLenPrefix:writeIdxPrev+sizeofLenPrefix+l], data)

	atomic.StoreUint32(&p.slotTable[countPrev], writeIdxPrev+1)
	futex.WakeAll(&p.slotTable[countPrev])

	return nil
}

// TryGet peeks slot c without blocking. A nil slice with a nil error means
// the slot has not been published yet.
func (p *DataPage) TryGet(c uint32) ([]byte, error) {
	if c >= p.params.Slots {
		return nil, ErrEndOfDataPage
	}
	v := atomic.LoadUint32(&p.slotTable[c])
	if v == 0 {
		return nil, nil
	}
	return p.resolve(c, v)
}

// Get blocks until slot c is published or declared terminal.
func (p *DataPage) Get(c uint32) ([]byte, error) {
	if c >= p.params.Slots {
		return nil, ErrEndOfDataPage
	}
	for {
		v := atomic.LoadUint32(&p.slotTable[c])
		if v != 0 {
			return p.resolve(c, v)
		}
		// Spurious wakeups just loop back around and reload.
		if err := futex.Wait(&p.slotTable[c], 0, 0); err != nil && err != futex.ErrTimeout {
			return nil, err
		}
	}
}

// GetWithTimeout behaves like Get but gives up after timeout, returning
// (nil, nil) without consuming the slot.
func (p *DataPage) GetWithTimeout(c uint32, timeout time.Duration) ([]byte, error) {
	if c >= p.params.Slots {
		return nil, ErrEndOfDataPage
	}
	v := atomic.LoadUint32(&p.slotTable[c])
	if v == 0 {
		if err := futex.Wait(&p.slotTable[c], 0, timeout); err != nil && err != futex.ErrTimeout {
			return nil, err
		}
		v = atomic.LoadUint32(&p.slotTable[c])
		if v == 0 {
			return nil, nil
		}
	}
	return p.resolve(c, v)
}

// IncrementGroupCount atomically advances group g's per-page consumer
// counter by delta, returning the value prior to the add. A fresh page
// starts every group's counter at 0, so the first consumer in a group sees
// slot 0.
func (p *DataPage) IncrementGroupCount(g uint32, delta uint32) uint32 {
	after := atomic.AddUint32(&p.groupCounts[g], delta)
	return after - delta
}

// resolve turns a non-zero slot-table value into the payload it names, or
// into the terminator cascade.
func (p *DataPage) resolve(c, v uint32) ([]byte, error) {
	if uint64(v) >= p.bufBytes {
		next := c + 1
		if next < p.params.Slots {
			atomic.StoreUint32(&p.slotTable[next], terminator)
			futex.WakeAll(&p.slotTable[next])
		}
		return nil, ErrEndOfDataPage
	}

	idx := v - 1
	length := binary.LittleEndian.Uint32(p.buf[idx : idx+sizeofLenPrefix])
	start := idx + sizeofLenPrefix
	return p.buf[start : start+length], nil
}
