package core

// Packet is a flat, ready-to-transmit scatter-gather unit. The first buffer
// is the freshly allocated header block (control word + item pointers); the
// remaining buffers are zero-copy slices into the heap's item buffers, or an
// 8-byte padding slice from the header block's scratch space.
type Packet struct {
	Buffers [][]byte
}

// Len returns the total number of wire bytes across all buffers.
func (p Packet) Len() int {
	n := 0
	for _, b := range p.Buffers {
		n += len(b)
	}
	return n
}

// Bytes flattens the scatter list into one contiguous slice. It copies and is
// intended for file dumps and tests, not for the hot transmit path.
func (p Packet) Bytes() []byte {
	out := make([]byte, 0, p.Len())
	for _, b := range p.Buffers {
		out = append(out, b...)
	}
	return out
}
