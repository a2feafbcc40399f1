package transport

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"os"
	"sync"

	"firestige.xyz/strix/internal/core"
)

// FileWriter dumps packets to a file for offline inspection: each packet is
// written as a big-endian uint32 length followed by the flattened packet
// bytes.
type FileWriter struct {
	mu     sync.Mutex
	f      *os.File
	w      *bufio.Writer
	closed bool
}

// NewFileWriter creates (truncating) the dump file at path.
func NewFileWriter(path string) (*FileWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	return &FileWriter{f: f, w: bufio.NewWriter(f)}, nil
}

// WritePacket appends one length-prefixed packet record.
func (w *FileWriter) WritePacket(pkt core.Packet) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return core.ErrWriterClosed
	}
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(pkt.Len()))
	if _, err := w.w.Write(hdr[:]); err != nil {
		return err
	}
	for _, b := range pkt.Buffers {
		if _, err := w.w.Write(b); err != nil {
			return err
		}
	}
	return nil
}

// Flush writes buffered records through to the file.
func (w *FileWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return core.ErrWriterClosed
	}
	return w.w.Flush()
}

// Close flushes and closes the file.
func (w *FileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	err := w.w.Flush()
	if cerr := w.f.Close(); err == nil {
		err = cerr
	}
	return err
}
