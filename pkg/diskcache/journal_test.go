package diskcache

import (
	"bufio"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatParseRecordRoundTrip(t *testing.T) {
	for _, rec := range []journalRecord{
		{kind: recordDirty, key: "a"},
		{kind: recordClean, key: "a", lengths: []int64{10, 20}},
		{kind: recordRemove, key: "a"},
		{kind: recordRead, key: "a"},
	} {
		line := formatRecord(rec)
		valueCount := len(rec.lengths)
		if valueCount == 0 {
			valueCount = 2 // DIRTY/REMOVE/READ don't carry lengths; pick an arbitrary valueCount.
		}
		parsed, err := parseRecord(line, valueCount)
		require.NoError(t, err)
		assert.Equal(t, rec, parsed)
	}
}

func TestParseRecordRejectsCorruption(t *testing.T) {
	for _, line := range []string{
		"",
		"BOGUS a",
		"CLEAN a 10", // wrong length count for valueCount=2
		"CLEAN a ten twenty",
	} {
		_, err := parseRecord(line, 2)
		assert.ErrorIs(t, err, ErrCorruptJournal, "line %q", line)
	}
}

func TestReadHeaderMismatch(t *testing.T) {
	scanner := bufio.NewScanner(strings.NewReader(journalMagic + "\n" + journalVersion + "\n2\n2\n\n"))
	err := readHeader(scanner, 1, 2)
	assert.ErrorIs(t, err, ErrCorruptJournal)
}

func TestReadHeaderTruncated(t *testing.T) {
	scanner := bufio.NewScanner(strings.NewReader(journalMagic + "\n"))
	err := readHeader(scanner, 1, 2)
	assert.ErrorIs(t, err, ErrCorruptJournal)
}
