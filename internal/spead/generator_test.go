package spead

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/strix/internal/core"
)

// parsedPacket holds the decoded content of one wire packet for assertions.
type parsedPacket struct {
	nPointers  int
	heapCnt    uint64
	heapLength uint64
	payloadOff uint64
	payloadLen uint64
	pointers   []uint64
	payload    []byte
}

// parsePacket decodes a flattened packet for test assertions.
func parsePacket(t *testing.T, f Flavour, raw []byte) parsedPacket {
	t.Helper()

	if len(raw) < PrefixSize {
		t.Fatalf("packet too short: %d bytes", len(raw))
	}
	word := func(i int) uint64 { return binary.BigEndian.Uint64(raw[8*i:]) }
	immediate := func(w uint64) uint64 {
		if w>>63 != 1 {
			t.Fatalf("expected immediate-mode pointer, got %#x", w)
		}
		return w & (uint64(1)<<f.HeapAddressBits() - 1)
	}

	ctrl := word(0)
	if ctrl>>48 != 0x5304 {
		t.Fatalf("bad magic/version in control word %#x", ctrl)
	}
	if got := int(ctrl >> 40 & 0xFF); got != 8-f.ImmediateSize() {
		t.Fatalf("id width = %d bytes, want %d", got, 8-f.ImmediateSize())
	}
	if got := int(ctrl >> 32 & 0xFF); got != f.ImmediateSize() {
		t.Fatalf("address width = %d bytes, want %d", got, f.ImmediateSize())
	}

	pp := parsedPacket{
		nPointers:  int(ctrl&0xFFFF) - 4,
		heapCnt:    immediate(word(1)),
		heapLength: immediate(word(2)),
		payloadOff: immediate(word(3)),
		payloadLen: immediate(word(4)),
	}
	if pp.nPointers < 0 {
		t.Fatalf("pointer count %d below the 4 mandatory pointers", pp.nPointers)
	}
	for i := 0; i < pp.nPointers; i++ {
		pp.pointers = append(pp.pointers, word(5+i))
	}
	pp.payload = raw[PrefixSize+8*pp.nPointers:]
	if len(pp.payload) != int(pp.payloadLen) {
		t.Fatalf("payload = %d bytes, header says %d", len(pp.payload), pp.payloadLen)
	}
	return pp
}

func collect(t *testing.T, g *Generator) []core.Packet {
	t.Helper()
	var pkts []core.Packet
	for {
		pkt, ok := g.Next()
		if !ok {
			break
		}
		pkts = append(pkts, pkt)
	}
	return pkts
}

func TestNewGeneratorRejectsTinyPacketSize(t *testing.T) {
	f, _ := NewFlavour(40)
	h := &core.Heap{Items: []core.Item{core.NewInlineItem(0x1600, 1)}}

	_, err := NewGenerator(h, f, PrefixSize+15)
	assert.ErrorIs(t, err, core.ErrPacketSizeTooSmall)

	_, err = NewGenerator(h, f, PrefixSize+16)
	assert.NoError(t, err)
}

func TestNewGeneratorRejectsOutOfRangeItems(t *testing.T) {
	f, _ := NewFlavour(40)

	h := &core.Heap{Items: []core.Item{core.NewInlineItem(uint64(1)<<23, 1)}}
	_, err := NewGenerator(h, f, 1472)
	assert.ErrorIs(t, err, core.ErrIDOutOfRange)

	h = &core.Heap{Items: []core.Item{core.NewInlineItem(0x1600, uint64(1)<<40)}}
	_, err = NewGenerator(h, f, 1472)
	assert.ErrorIs(t, err, core.ErrValueOutOfRange)
}

// A heap with one inline item and one 40-byte buffer item, 32-bit addresses
// and a 64-byte packet budget must split into exactly three packets: the
// 40-byte item goes to address mode (40 > 4-byte immediate capacity) and the
// payload is emitted as 8+24+8 bytes.
func TestGeneratorThreePacketSplit(t *testing.T) {
	f, err := NewFlavour(32)
	require.NoError(t, err)

	data := make([]byte, 40)
	for i := range data {
		data[i] = byte(i + 1)
	}
	h := &core.Heap{
		Cnt: 7,
		Items: []core.Item{
			core.NewInlineItem(0x1600, 0x1234),
			core.NewBufferItem(0x3300, data),
		},
	}

	g, err := NewGenerator(h, f, 64)
	require.NoError(t, err)
	assert.Equal(t, 40, g.PayloadSize())

	pkts := collect(t, g)
	require.Len(t, pkts, 3)

	p1 := parsePacket(t, f, pkts[0].Bytes())
	assert.Equal(t, 2, p1.nPointers)
	assert.Equal(t, uint64(7), p1.heapCnt)
	assert.Equal(t, uint64(40), p1.heapLength)
	assert.Equal(t, uint64(0), p1.payloadOff)
	assert.Equal(t, uint64(8), p1.payloadLen)

	// Inline item rides in an immediate pointer.
	assert.Equal(t, uint64(1)<<63|uint64(0x1600)<<32|0x1234, p1.pointers[0])
	// The 40-byte item gets an address pointer at offset 0.
	assert.Equal(t, uint64(0x3300)<<32|0, p1.pointers[1])

	p2 := parsePacket(t, f, pkts[1].Bytes())
	assert.Equal(t, 0, p2.nPointers)
	assert.Equal(t, uint64(8), p2.payloadOff)
	assert.Equal(t, uint64(24), p2.payloadLen)

	p3 := parsePacket(t, f, pkts[2].Bytes())
	assert.Equal(t, uint64(32), p3.payloadOff)
	assert.Equal(t, uint64(8), p3.payloadLen)

	// Payload reassembles to the original buffer, in order.
	var payload []byte
	for _, pp := range []parsedPacket{p1, p2, p3} {
		payload = append(payload, pp.payload...)
	}
	assert.Equal(t, data, payload)

	// Exhaustion is a stable terminal state.
	for i := 0; i < 3; i++ {
		_, ok := g.Next()
		assert.False(t, ok)
	}
}

func TestGeneratorSmallBufferRidesInPointer(t *testing.T) {
	f, _ := NewFlavour(40)
	h := &core.Heap{
		Items: []core.Item{
			core.NewBufferItem(0x3300, []byte{0xAA, 0xBB, 0xCC}),
		},
	}

	g, err := NewGenerator(h, f, 1472)
	require.NoError(t, err)
	// Small buffers contribute no payload; the packet-count floor remains.
	assert.Equal(t, 8, g.PayloadSize())

	pkts := collect(t, g)
	require.Len(t, pkts, 1)
	pp := parsePacket(t, f, pkts[0].Bytes())

	require.Equal(t, 1, pp.nPointers)
	ptr := pp.pointers[0]
	assert.Equal(t, uint64(1), ptr>>63, "small buffer must use immediate mode")
	assert.Equal(t, uint64(0x3300), ptr>>40&(uint64(1)<<23-1))
	// Raw bytes sit right-aligned in the address field.
	assert.Equal(t, uint64(0xAABBCC), ptr&(uint64(1)<<40-1))
}

func TestGeneratorPadsInlineOnlyHeap(t *testing.T) {
	f, _ := NewFlavour(40)
	h := &core.Heap{
		Cnt: 3,
		Items: []core.Item{
			core.NewInlineItem(0x1600, 1),
			core.NewInlineItem(0x1601, 2),
			core.NewInlineItem(0x1602, 3),
		},
	}

	g, err := NewGenerator(h, f, 1472)
	require.NoError(t, err)
	assert.Equal(t, 8, g.PayloadSize())

	pkts := collect(t, g)
	require.Len(t, pkts, 1)
	pp := parsePacket(t, f, pkts[0].Bytes())

	assert.Equal(t, 3, pp.nPointers)
	assert.Equal(t, uint64(8), pp.heapLength)
	assert.Equal(t, uint64(8), pp.payloadLen)
	assert.Equal(t, make([]byte, 8), pp.payload, "padding payload must be zeros")
}

// Many inline items with a tiny packet budget force the padding floor across
// several packets: each of the ten pointer-only packets still carries its
// 8 bytes of zero payload.
func TestGeneratorPadsAcrossManyPackets(t *testing.T) {
	f, _ := NewFlavour(40)
	h := &core.Heap{}
	for i := 0; i < 100; i++ {
		h.Items = append(h.Items, core.NewInlineItem(0x1600+uint64(i), uint64(i)))
	}

	g, err := NewGenerator(h, f, 128)
	require.NoError(t, err)
	assert.Equal(t, 80, g.PayloadSize())

	pkts := collect(t, g)
	require.Len(t, pkts, 10)

	ptrs := 0
	for i, pkt := range pkts {
		pp := parsePacket(t, f, pkt.Bytes())
		assert.Equal(t, uint64(8*i), pp.payloadOff)
		assert.Equal(t, uint64(8), pp.payloadLen)
		ptrs += pp.nPointers
	}
	assert.Equal(t, 100, ptrs, "every item pointer must be placed")
}

func TestGeneratorPayloadConservation(t *testing.T) {
	f, _ := NewFlavour(40)
	big1 := bytes.Repeat([]byte{0x11}, 1000)
	big2 := bytes.Repeat([]byte{0x22}, 3000)
	big3 := bytes.Repeat([]byte{0x33}, 64)
	h := &core.Heap{
		Cnt: 99,
		Items: []core.Item{
			core.NewInlineItem(0x1600, 7),
			core.NewBufferItem(0x3301, []byte{1, 2, 3, 4}), // rides in pointer
			core.NewBufferItem(0x3302, big1),
			core.NewBufferItem(0x3303, big2),
			core.NewBufferItem(0x3304, big3),
		},
	}

	g, err := NewGenerator(h, f, 1472)
	require.NoError(t, err)
	require.Equal(t, 4064, g.PayloadSize())

	pkts := collect(t, g)
	require.NotEmpty(t, pkts)

	total := uint64(0)
	nextOff := uint64(0)
	var payload []byte
	for _, pkt := range pkts {
		require.LessOrEqual(t, pkt.Len(), 1472)
		pp := parsePacket(t, f, pkt.Bytes())
		assert.Equal(t, uint64(99), pp.heapCnt)
		assert.Equal(t, uint64(4064), pp.heapLength)
		assert.Equal(t, nextOff, pp.payloadOff, "payload offsets must be contiguous")
		assert.GreaterOrEqual(t, pp.payloadLen, uint64(8))
		total += pp.payloadLen
		nextOff += pp.payloadLen
		payload = append(payload, pp.payload...)
	}
	assert.Equal(t, uint64(4064), total)

	// Address-mode payload is the concatenation of the large buffers in heap
	// order; the inline and small items contribute nothing.
	want := append(append(append([]byte{}, big1...), big2...), big3...)
	assert.Equal(t, want, payload)
}

func TestGeneratorDeterminism(t *testing.T) {
	f, _ := NewFlavour(40)
	makeHeap := func() *core.Heap {
		buf := make([]byte, 5000)
		for i := range buf {
			buf[i] = byte(i * 7)
		}
		return &core.Heap{
			Cnt: 42,
			Items: []core.Item{
				core.NewInlineItem(0x1600, 123),
				core.NewBufferItem(0x3300, buf),
			},
		}
	}

	run := func() [][]byte {
		g, err := NewGenerator(makeHeap(), f, 1100)
		require.NoError(t, err)
		var out [][]byte
		for _, pkt := range collect(t, g) {
			out = append(out, pkt.Bytes())
		}
		return out
	}

	first := run()
	second := run()
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.True(t, bytes.Equal(first[i], second[i]), "packet %d differs", i)
	}
}

func TestGeneratorEmptyHeapEmitsNothing(t *testing.T) {
	f, _ := NewFlavour(40)
	g, err := NewGenerator(&core.Heap{}, f, 1472)
	require.NoError(t, err)

	_, ok := g.Next()
	assert.False(t, ok)
}
