// Package framing implements the length-prefixed binary record format
// shared by every on-disk stream the shuffle writes: an 8-byte
// native-endian length prefix followed by exactly that many payload bytes.
package framing

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// nativeEndian matches the host's byte order, mirroring the original C++
// implementation's use of the platform's native integer representation for
// the length prefix. The shuffle format is explicitly private to one job
// and need not be portable across hosts (spec §6).
var nativeEndian = binary.NativeEndian

// lengthPrefixSize is the width in bytes of the frame's length prefix (u64).
const lengthPrefixSize = 8

// Writer appends length-prefixed records to an underlying writer. Not safe
// for concurrent use by multiple goroutines; callers needing concurrent
// writes synchronize at a higher layer (see shuffle.Sink).
type Writer struct {
	w *bufio.Writer
}

// NewWriter wraps w in a buffered frame writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// WriteRecord appends one frame: an 8-byte length prefix followed by
// payload. A short or failed write is fatal to the caller's job (spec §7,
// I/O error taxonomy) — the caller should treat any returned error as such.
func (w *Writer) WriteRecord(payload []byte) error {
	var lenBuf [lengthPrefixSize]byte
	nativeEndian.PutUint64(lenBuf[:], uint64(len(payload)))
	if _, err := w.w.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("framing: write length prefix: %w", err)
	}
	if _, err := w.w.Write(payload); err != nil {
		return fmt.Errorf("framing: write payload: %w", err)
	}
	return nil
}

// Flush flushes buffered data to the underlying writer.
func (w *Writer) Flush() error {
	return w.w.Flush()
}

// Reader decodes length-prefixed records from an underlying reader using a
// buffer of the configured size. It maintains a current buffer and an
// offset, refilling from the underlying stream in chunks of bufferSize
// bytes; a record whose payload spans a chunk boundary is reassembled
// across refills. Not safe for concurrent use.
type Reader struct {
	r          *bufio.Reader
	bufferSize int
}

// NewReader wraps r in a chunked frame reader. bufferSize configures the
// size of the underlying bufio.Reader's read-ahead buffer; values smaller
// than one length prefix are raised to that size, and records themselves may
// be arbitrarily larger than bufferSize (§8 boundary behavior: "a record
// larger than buffer_size is still read correctly").
func NewReader(r io.Reader, bufferSize int) *Reader {
	if bufferSize < lengthPrefixSize {
		bufferSize = lengthPrefixSize
	}
	return &Reader{
		r:          bufio.NewReaderSize(r, bufferSize),
		bufferSize: bufferSize,
	}
}

// HasNext reports whether at least one more byte is available, i.e. whether
// a subsequent ReadRecord has a chance of succeeding. It does not guarantee
// a full frame is present; a truncated trailing frame is reported as an
// error from ReadRecord (invariant violation, spec §7).
func (r *Reader) HasNext() bool {
	_, err := r.r.Peek(1)
	return err == nil
}

// ReadRecord decodes one frame: an 8-byte length prefix followed by exactly
// that many payload bytes. Returns io.EOF only when the stream ends exactly
// on a frame boundary (no partial frame read). A length prefix with no
// matching payload bytes available is an invariant violation (spec §7).
func (r *Reader) ReadRecord() ([]byte, error) {
	var lenBuf [lengthPrefixSize]byte
	if _, err := io.ReadFull(r.r, lenBuf[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("framing: invariant violation: truncated length prefix: %w", err)
	}

	length := nativeEndian.Uint64(lenBuf[:])
	payload := make([]byte, length)
	if _, err := io.ReadFull(r.r, payload); err != nil {
		return nil, fmt.Errorf("framing: invariant violation: truncated payload (want %d bytes): %w", length, err)
	}
	return payload, nil
}
