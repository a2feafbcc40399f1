package transport

import (
	"fmt"
	"net"
	"sync"

	"golang.org/x/net/ipv4"

	"firestige.xyz/strix/internal/core"
)

// UDPWriter sends packets over a pre-dialed UDP connection. Packets are
// collected into a batch and handed to the kernel with a single vectored
// WriteBatch call; each packet's scatter list becomes one datagram without
// copying.
type UDPWriter struct {
	mu        sync.Mutex
	conn      *net.UDPConn
	pconn     *ipv4.PacketConn
	batch     []ipv4.Message
	batchSize int
	closed    bool
}

// NewUDPWriter dials target (host:port) and returns a writer that flushes
// every batchSize packets. batchSize <= 1 disables batching.
func NewUDPWriter(target string, batchSize int) (*UDPWriter, error) {
	addr, err := net.ResolveUDPAddr("udp", target)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", target, err)
	}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", target, err)
	}
	if batchSize < 1 {
		batchSize = 1
	}
	return &UDPWriter{
		conn:      conn,
		pconn:     ipv4.NewPacketConn(conn),
		batch:     make([]ipv4.Message, 0, batchSize),
		batchSize: batchSize,
	}, nil
}

// WritePacket queues one packet as a datagram, flushing when the batch is
// full.
func (w *UDPWriter) WritePacket(pkt core.Packet) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return core.ErrWriterClosed
	}
	w.batch = append(w.batch, ipv4.Message{Buffers: pkt.Buffers})
	if len(w.batch) >= w.batchSize {
		return w.flushLocked()
	}
	return nil
}

// Flush transmits all queued datagrams.
func (w *UDPWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return core.ErrWriterClosed
	}
	return w.flushLocked()
}

func (w *UDPWriter) flushLocked() error {
	sent := 0
	for sent < len(w.batch) {
		n, err := w.pconn.WriteBatch(w.batch[sent:], 0)
		if err != nil {
			w.batch = w.batch[:0]
			return fmt.Errorf("udp write batch: %w", err)
		}
		sent += n
	}
	w.batch = w.batch[:0]
	return nil
}

// Close flushes pending datagrams and closes the connection.
func (w *UDPWriter) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	err := w.flushLocked()
	w.closed = true
	w.mu.Unlock()
	if cerr := w.conn.Close(); err == nil {
		err = cerr
	}
	return err
}
