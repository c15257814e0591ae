// Package futex wraps the Linux futex(2) syscall as the kernel-level wait
// primitive used by datapage's slot table: a thread blocks on the address
// of a uint32 cell until its value changes or it is explicitly woken.
package futex

import (
	"errors"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// ErrTimeout is returned by Wait when the timeout elapses before the word
// at addr changes or a waker arrives.
var ErrTimeout = errors.New("futex: wait timed out")

const (
	// Shared (non-private) operations, so a waker in one process reaches
	// waiters in every other process mapping the same file.
	opWaitShared = 0 // FUTEX_WAIT
	opWakeShared = 1 // FUTEX_WAKE
	wakeAll      = 1<<31 - 1
)

// Wait blocks the calling goroutine while *addr == expect. A zero or
// negative timeout blocks indefinitely. Wait returns nil on a real or
// spurious wakeup (including one where *addr had already changed by the
// time the syscall ran); callers must reload addr and re-check their own
// condition, exactly as the Linux futex(2) contract requires.
func Wait(addr *uint32, expect uint32, timeout time.Duration) error {
	var ts *unix.Timespec
	if timeout > 0 {
		t := unix.NsecToTimespec(timeout.Nanoseconds())
		ts = &t
	}

	_, _, errno := unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		uintptr(opWaitShared),
		uintptr(expect),
		uintptr(unsafe.Pointer(ts)),
		0, 0,
	)
	switch errno {
	case 0, unix.EAGAIN, unix.EINTR:
		return nil
	case unix.ETIMEDOUT:
		return ErrTimeout
	default:
		return errno
	}
}

// WakeAll wakes every goroutine currently blocked in Wait on addr.
func WakeAll(addr *uint32) {
	unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		uintptr(opWakeShared),
		uintptr(wakeAll),
		0, 0, 0,
	)
}
