package datapage

import "errors"

// ErrDataPageFull is returned by Push when the page has exhausted either its
// slot table or its byte buffer. It is not fatal: the caller (queue.Sender)
// retries on the next page.
var ErrDataPageFull = errors.New("datapage: page is full")

// ErrEndOfDataPage is returned by a read once it observes the terminator, or
// immediately for a slot index past the end of the table. Like
// ErrDataPageFull, it is non-fatal and drives rotation to the next page.
var ErrEndOfDataPage = errors.New("datapage: end of page")
