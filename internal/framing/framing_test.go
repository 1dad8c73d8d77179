package framing

import (
	"bytes"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeAll(t *testing.T, records [][]byte) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	w := NewWriter(&buf)
	for _, r := range records {
		require.NoError(t, w.WriteRecord(r))
	}
	require.NoError(t, w.Flush())
	return &buf
}

func readAll(t *testing.T, buf *bytes.Buffer, bufferSize int) [][]byte {
	t.Helper()
	r := NewReader(bytes.NewReader(buf.Bytes()), bufferSize)
	var out [][]byte
	for r.HasNext() {
		rec, err := r.ReadRecord()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		out = append(out, rec)
	}
	return out
}

// P4: for any record set and any buffer_size >= 1, decoding what the
// writer produced yields the same records in order.
func TestFrameRoundTrip(t *testing.T) {
	records := [][]byte{
		[]byte("hello"),
		[]byte(""),
		[]byte("a"),
		bytes.Repeat([]byte("x"), 4096),
		[]byte("world"),
	}

	for _, bufSize := range []int{1, 2, 8, 64, 4096, 1 << 20} {
		t.Run(fmt.Sprintf("buffer=%d", bufSize), func(t *testing.T) {
			buf := writeAll(t, records)
			got := readAll(t, buf, bufSize)
			require.Len(t, got, len(records))
			for i := range records {
				assert.Equal(t, records[i], got[i])
			}
		})
	}
}

// Scenario D: a record whose encoded form is far larger than buffer_size
// still round-trips unchanged.
func TestLargeRecordSpansChunks(t *testing.T) {
	const bufferSize = 64
	big := bytes.Repeat([]byte("z"), bufferSize*10)

	buf := writeAll(t, [][]byte{big})
	got := readAll(t, buf, bufferSize)

	require.Len(t, got, 1)
	assert.Equal(t, big, got[0])
}

func TestEmptyStreamHasNoRecords(t *testing.T) {
	var buf bytes.Buffer
	r := NewReader(&buf, 16)
	assert.False(t, r.HasNext())
}

func TestTruncatedFrameIsInvariantViolation(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteRecord([]byte("abcdef")))
	require.NoError(t, w.Flush())

	truncated := buf.Bytes()[:buf.Len()-2]
	r := NewReader(bytes.NewReader(truncated), 16)
	_, err := r.ReadRecord()
	assert.Error(t, err)
}
