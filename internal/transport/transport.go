// Package transport implements packet writers for the send pipeline.
//
// Writers consume the generator's scatter-gather packets without flattening
// them: the UDP writer hands the scatter list to the kernel as vectored I/O.
package transport

import "firestige.xyz/strix/internal/core"

// Writer delivers ready-to-transmit packets. Implementations are safe for
// concurrent use by multiple sender goroutines.
type Writer interface {
	// WritePacket queues or transmits one packet. The packet's buffers are
	// borrowed; they must stay valid until WritePacket (or a later Flush)
	// returns.
	WritePacket(pkt core.Packet) error

	// Flush transmits any batched packets.
	Flush() error

	// Close flushes and releases the underlying resources.
	Close() error
}
