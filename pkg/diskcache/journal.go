// This file implements the on-disk journal: an append-only, US-ASCII, newline-delimited text
// log of entry state transitions. The journal is the single source of truth for which entries
// are readable after a crash; see recovery.go for how it's replayed on Open.
package diskcache

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

const (
	journalFileName    = "journal"
	journalTmpFileName = "journal.tmp"
	journalBkpFileName = "journal.bkp"

	journalMagic   = "libcore.io.DiskLruCache"
	journalVersion = "1"
)

type recordKind string

const (
	recordDirty  recordKind = "DIRTY"
	recordClean  recordKind = "CLEAN"
	recordRemove recordKind = "REMOVE"
	recordRead   recordKind = "READ"
)

// journalRecord is one parsed line of the journal body.
type journalRecord struct {
	kind    recordKind
	key     string
	lengths []int64 // populated only for CLEAN
}

// writeHeader writes the exact five-line header spec.md §4.1 describes.
func writeHeader(w io.Writer, appVersion, valueCount int) error {
	lines := []string{
		journalMagic,
		journalVersion,
		strconv.Itoa(appVersion),
		strconv.Itoa(valueCount),
		"",
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return fmt.Errorf("diskcache: failed to write journal header: %w", err)
		}
	}
	return nil
}

// readHeader reads and validates the five-line header against the cache's configured
// appVersion/valueCount. Any mismatch is a corrupt journal per spec.md §4.1.
func readHeader(scanner *bufio.Scanner, appVersion, valueCount int) error {
	want := []string{
		journalMagic,
		journalVersion,
		strconv.Itoa(appVersion),
		strconv.Itoa(valueCount),
		"",
	}
	for _, w := range want {
		if !scanner.Scan() {
			return fmt.Errorf("%w: truncated header", ErrCorruptJournal)
		}
		if scanner.Text() != w {
			return fmt.Errorf("%w: header mismatch, want %q got %q", ErrCorruptJournal, w, scanner.Text())
		}
	}
	return nil
}

// parseRecord parses one body line into a journalRecord. An unrecognized record kind or a
// malformed CLEAN length list is a corrupt journal.
func parseRecord(line string, valueCount int) (journalRecord, error) {
	parts := strings.Split(line, " ")
	if len(parts) < 2 {
		return journalRecord{}, fmt.Errorf("%w: malformed record %q", ErrCorruptJournal, line)
	}
	kind := recordKind(parts[0])
	key := parts[1]

	switch kind {
	case recordDirty, recordRemove, recordRead:
		if len(parts) != 2 {
			return journalRecord{}, fmt.Errorf("%w: unexpected fields in %q", ErrCorruptJournal, line)
		}
		return journalRecord{kind: kind, key: key}, nil
	case recordClean:
		lenParts := parts[2:]
		if len(lenParts) != valueCount {
			return journalRecord{}, fmt.Errorf("%w: expected %d lengths in %q", ErrCorruptJournal, valueCount, line)
		}
		lengths := make([]int64, valueCount)
		for i, s := range lenParts {
			n, err := strconv.ParseInt(s, 10, 64)
			if err != nil || n < 0 {
				return journalRecord{}, fmt.Errorf("%w: bad length %q in %q", ErrCorruptJournal, s, line)
			}
			lengths[i] = n
		}
		return journalRecord{kind: kind, key: key, lengths: lengths}, nil
	default:
		return journalRecord{}, fmt.Errorf("%w: unrecognized record kind %q", ErrCorruptJournal, parts[0])
	}
}

// formatRecord renders a journalRecord back to its single-line textual form, without the
// trailing newline.
func formatRecord(rec journalRecord) string {
	switch rec.kind {
	case recordClean:
		b := strings.Builder{}
		b.WriteString(string(recordClean))
		b.WriteByte(' ')
		b.WriteString(rec.key)
		for _, n := range rec.lengths {
			b.WriteByte(' ')
			b.WriteString(strconv.FormatInt(n, 10))
		}
		return b.String()
	default:
		return string(rec.kind) + " " + rec.key
	}
}

// journalWriter is a buffered append-only text writer over the active journal file. DIRTY
// records are flushed immediately after being appended (spec.md §5 ordering guarantee); CLEAN
// and REMOVE records are flushed by the caller after the corresponding filesystem mutation.
type journalWriter struct {
	file   *os.File
	writer *bufio.Writer
}

func openJournalWriter(path string) (*journalWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("diskcache: failed to open journal for append: %w", err)
	}
	return &journalWriter{file: f, writer: bufio.NewWriter(f)}, nil
}

// append writes one record, terminated by a newline, without flushing.
func (jw *journalWriter) append(rec journalRecord) error {
	if _, err := jw.writer.WriteString(formatRecord(rec)); err != nil {
		return fmt.Errorf("diskcache: failed to append journal record: %w", err)
	}
	if err := jw.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("diskcache: failed to append journal record: %w", err)
	}
	return nil
}

func (jw *journalWriter) flush() error {
	if err := jw.writer.Flush(); err != nil {
		return fmt.Errorf("diskcache: failed to flush journal: %w", err)
	}
	return nil
}

func (jw *journalWriter) close() error {
	if err := jw.flush(); err != nil {
		return err
	}
	if err := jw.file.Close(); err != nil {
		return fmt.Errorf("diskcache: failed to close journal: %w", err)
	}
	return nil
}
