package core

// Standard SPEAD item IDs. Every packet header repeats the first four as
// immediate pointers so that any packet alone carries enough metadata for
// out-of-order or partial reassembly.
const (
	HeapCntID       = uint64(0x01) // heap counter
	HeapLengthID    = uint64(0x02) // total heap payload length
	PayloadOffsetID = uint64(0x03) // this packet's payload offset
	PayloadLengthID = uint64(0x04) // this packet's payload length
	StreamCtrlID    = uint64(0x06) // stream control (start/stop markers)
)

// Stream control item values.
const (
	CtrlStreamStart = uint64(1)
	CtrlStreamStop  = uint64(2)
)
