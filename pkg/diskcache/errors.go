package diskcache

import "errors"

// ErrClosed is returned by any public operation performed after Close.
var ErrClosed = errors.New("diskcache: cache is closed")

// ErrCorruptJournal indicates the on-disk journal could not be parsed. Recovery deletes the
// cache directory and starts fresh; callers never observe this error directly from Open.
var ErrCorruptJournal = errors.New("diskcache: corrupt journal")

// ErrNotAnEditor is returned by Editor methods called after Commit or Abort.
var ErrNotAnEditor = errors.New("diskcache: editor already committed or aborted")

// ErrIllegalState covers committing a newly created entry with an unwritten value index and
// out-of-range value indices. A second Commit on the same Editor returns ErrNotAnEditor.
var ErrIllegalState = errors.New("diskcache: illegal state")

// ErrInvalidKey is returned when a key does not match the required key pattern.
var ErrInvalidKey = errors.New("diskcache: invalid key")
