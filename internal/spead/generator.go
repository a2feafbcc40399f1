package spead

import (
	"encoding/binary"
	"fmt"

	"firestige.xyz/strix/internal/core"
)

// PrefixSize is the fixed header prefix: the control word plus the four
// mandatory immediate pointers (heap counter, heap length, payload offset,
// payload length).
const PrefixSize = 8 * 5

// Generator slices one immutable heap into wire packets under a byte-size
// budget. It is a one-shot sequential iterator: not safe for concurrent use,
// and once exhausted it never produces another packet.
//
// All emitted packets borrow into the heap's item buffers; the heap must
// outlive every packet, including packets still queued or in flight.
type Generator struct {
	heap          *core.Heap
	flavour       Flavour
	maxPacketSize int

	payloadSize     int // total payload bytes this heap will ever emit
	maxItemPointers int // item pointers that fit in one packet
	payloadOffset   int // payload bytes emitted so far
	nextItemPointer int // next item whose pointer has not been placed
	nextItem        int // payload emission cursor: item index
	nextItemOffset  int // payload emission cursor: byte offset within item
	nextAddress     int // running byte address assigned to address-mode items
}

// NewGenerator validates the configuration and precomputes the heap's total
// payload size. maxPacketSize must leave room for the prefix, one item
// pointer and 8 bytes of payload; 8 bytes of payload per packet keep payload
// offsets unique (1 would do, but 8 keeps the payload aligned).
func NewGenerator(h *core.Heap, f Flavour, maxPacketSize int) (*Generator, error) {
	if maxPacketSize < PrefixSize+16 {
		return nil, fmt.Errorf("%w: %d bytes (minimum %d)",
			core.ErrPacketSizeTooSmall, maxPacketSize, PrefixSize+16)
	}

	maxImmediate := f.ImmediateSize()
	payloadSize := h.PayloadSize(maxImmediate)

	// Every packet must carry some payload. If the item pointers alone need
	// more packets than the payload fills, raise the payload size; the
	// difference is sent later as zero padding.
	maxItemPointers := (maxPacketSize - (PrefixSize + 8)) / 8
	itemPackets := (len(h.Items) + maxItemPointers - 1) / maxItemPointers
	if padded := itemPackets * 8; payloadSize < padded {
		payloadSize = padded
	}

	// Validate ranges up front so packet emission cannot fail.
	for _, it := range h.Items {
		value := uint64(0)
		if it.Inline {
			value = it.Immediate
		}
		if err := f.checkRange(it.ID, value); err != nil {
			return nil, err
		}
	}
	if err := f.checkRange(core.HeapCntID, h.Cnt); err != nil {
		return nil, err
	}
	if uint64(payloadSize) >= uint64(1)<<f.HeapAddressBits() {
		return nil, fmt.Errorf("%w: heap payload %d bytes", core.ErrValueOutOfRange, payloadSize)
	}

	return &Generator{
		heap:            h,
		flavour:         f,
		maxPacketSize:   maxPacketSize,
		payloadSize:     payloadSize,
		maxItemPointers: maxItemPointers,
	}, nil
}

// PayloadSize returns the total payload bytes the generator will emit across
// all packets, including padding.
func (g *Generator) PayloadSize() int { return g.payloadSize }

// Next produces the next wire packet, or ok=false once the heap is fully
// emitted. The terminal state is stable: all further calls return ok=false.
func (g *Generator) Next() (pkt core.Packet, ok bool) {
	if g.payloadOffset >= g.payloadSize {
		return core.Packet{}, false
	}

	f := g.flavour
	maxImmediate := f.ImmediateSize()
	n := min(g.maxItemPointers, len(g.heap.Items)-g.nextItemPointer)
	packetPayloadLength := min(
		g.payloadSize-g.payloadOffset,
		g.maxPacketSize-8*n-PrefixSize)

	// Header block with an 8-byte zeroed scratch tail, usable as synthetic
	// padding payload.
	headerLen := PrefixSize + 8*n
	data := make([]byte, headerLen+8)
	putWord(data, 0, f.ControlWord(n))
	putWord(data, 1, f.encodeImmediate(core.HeapCntID, g.heap.Cnt))
	putWord(data, 2, f.encodeImmediate(core.HeapLengthID, uint64(g.payloadSize)))
	putWord(data, 3, f.encodeImmediate(core.PayloadOffsetID, uint64(g.payloadOffset)))
	putWord(data, 4, f.encodeImmediate(core.PayloadLengthID, uint64(packetPayloadLength)))

	for i := 0; i < n; i++ {
		it := g.heap.Items[g.nextItemPointer]
		g.nextItemPointer++
		word := 5 + i
		switch {
		case it.Inline:
			putWord(data, word, f.encodeImmediate(it.ID, it.Immediate))
		case len(it.Buffer) <= maxImmediate:
			// Small buffer: the raw bytes ride right-aligned in the pointer
			// itself, avoiding a payload round trip.
			putWord(data, word, f.encodeImmediate(it.ID, 0))
			copy(data[8*(word+1)-len(it.Buffer):8*(word+1)], it.Buffer)
		default:
			putWord(data, word, f.encodeAddress(it.ID, uint64(g.nextAddress)))
			g.nextAddress += len(it.Buffer)
		}
	}

	pkt.Buffers = append(pkt.Buffers, data[:headerLen])
	g.payloadOffset += packetPayloadLength

	// Build the payload scatter list from the shared item cursor. Items that
	// contribute no payload only advance the cursor; large items contribute
	// zero-copy slices, split across packets when they do not fit.
	remaining := packetPayloadLength
	for remaining > 0 {
		if g.nextItem == len(g.heap.Items) {
			// Synthetic padding from the header scratch space, at most 8
			// bytes per entry (the scratch is only 8 bytes long).
			nb := min(remaining, 8)
			pkt.Buffers = append(pkt.Buffers, data[headerLen:headerLen+nb])
			remaining -= nb
			continue
		}
		it := g.heap.Items[g.nextItem]
		if it.Inline || len(it.Buffer) <= maxImmediate {
			g.nextItem++
			g.nextItemOffset = 0
			continue
		}
		send := min(len(it.Buffer)-g.nextItemOffset, remaining)
		pkt.Buffers = append(pkt.Buffers, it.Buffer[g.nextItemOffset:g.nextItemOffset+send])
		g.nextItemOffset += send
		if g.nextItemOffset == len(it.Buffer) {
			g.nextItem++
			g.nextItemOffset = 0
		}
		remaining -= send
	}

	return pkt, true
}

// putWord writes the idx-th big-endian 64-bit word of the header block.
func putWord(data []byte, idx int, v uint64) {
	binary.BigEndian.PutUint64(data[8*idx:], v)
}
