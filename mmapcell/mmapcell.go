// Package mmapcell implements the mapped-cell primitive: a fixed-size file
// opened or created on disk and mapped MAP_SHARED into the process address
// space, so that reads and writes to the mapping are visible to every other
// process mapping the same file. Concurrency safety for anything stored in
// the mapping is the caller's responsibility (interior atomics); mmapcell
// only owns the file descriptor and the mapping itself.
package mmapcell

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Raw is an anonymous-size mapped file: the byte-slice primitive that both
// Cell[T] and the datapage package (whose layout depends on runtime
// parameters, not a single Go type) are built on.
type Raw struct {
	file *os.File
	Data []byte
}

// OpenRaw opens path, creating it if absent, extends it to size bytes if it
// is smaller, and maps it shared into the address space. An existing file
// larger than size is mapped at its current size; this preserves append-only
// growth semantics some callers may rely on, but datapage and Cell always
// pass a fixed, agreed-upon size so this case does not arise in practice.
func OpenRaw(path string, size int64) (*Raw, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("mmapcell: open %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mmapcell: stat %s: %w", path, err)
	}

	mapSize := size
	if info.Size() > size {
		mapSize = info.Size()
	} else if info.Size() < size {
		if err := f.Truncate(size); err != nil {
			f.Close()
			return nil, fmt.Errorf("mmapcell: truncate %s to %d: %w", path, size, err)
		}
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(mapSize), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mmapcell: mmap %s: %w", path, err)
	}

	return &Raw{file: f, Data: data}, nil
}

// Close unmaps the region and closes the underlying file descriptor. It does
// not remove the file; removal is the owner's (e.g. a page manager's)
// decision.
func (r *Raw) Close() error {
	mErr := unix.Munmap(r.Data)
	cErr := r.file.Close()
	if mErr != nil {
		return fmt.Errorf("mmapcell: munmap %s: %w", r.file.Name(), mErr)
	}
	if cErr != nil {
		return fmt.Errorf("mmapcell: close %s: %w", r.file.Name(), cErr)
	}
	return nil
}

// Cell is a mapped file sized to exactly hold one T, with interior
// mutability: Get and GetMut both hand back a pointer into the live mapping,
// trusting T to manage its own concurrent-safety (typically via sync/atomic
// fields), matching mmapcell's "no lock around the mapping" contract.
type Cell[T any] struct {
	raw *Raw
}

// New opens or creates path as a file of exactly sizeof(T) bytes and maps
// it. The zero value of T must be meaningful: a freshly created file is
// zero-filled by the operating system, and callers (datapage in particular)
// rely on that to mean "unpublished".
func New[T any](path string) (*Cell[T], error) {
	var zero T
	raw, err := OpenRaw(path, int64(unsafe.Sizeof(zero)))
	if err != nil {
		return nil, err
	}
	return &Cell[T]{raw: raw}, nil
}

// Get returns a pointer to the mapped T for shared, read-oriented access.
func (c *Cell[T]) Get() *T {
	return (*T)(unsafe.Pointer(&c.raw.Data[0]))
}

// GetMut returns a pointer to the mapped T for mutation. The caller asserts
// it is the only writer of non-atomic fields; fields that are genuinely
// shared across goroutines or processes must be atomics.
func (c *Cell[T]) GetMut() *T {
	return c.Get()
}

// Close unmaps the cell and closes its file descriptor.
func (c *Cell[T]) Close() error {
	return c.raw.Close()
}
