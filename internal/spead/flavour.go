// Package spead implements send-side SPEAD packet encoding.
//
// SPEAD packet layout (all fields big-endian 64-bit words):
//
//	Word  Content
//	----  -------
//	0     control word: magic 0x53 "S", version 4, id-field byte width,
//	      address-field byte width, item-pointer count (incl. 4 below)
//	1     immediate pointer: heap counter        (id 0x01)
//	2     immediate pointer: heap payload length (id 0x02)
//	3     immediate pointer: payload offset      (id 0x03)
//	4     immediate pointer: payload length      (id 0x04)
//	5…    one item pointer per selected heap item
//	…     payload bytes (scatter-gather, may end with 8-byte zero padding)
//
// Each item pointer is one 64-bit word:
//
//	bit 63          mode flag: 1 = immediate, 0 = address
//	bits 62…A       item id (63−A bits)
//	bits A−1…0      value (immediate) or payload byte offset (address)
//
// where A is the flavour's address-field width in bits.
package spead

import (
	"fmt"

	"firestige.xyz/strix/internal/core"
)

// magicVersion is the top 16 bits of every control word: magic byte 0x53
// followed by protocol version 4.
const magicVersion = uint64(0x5304)

// Flavour fixes the bit split of the 64-bit item pointer: how many low bits
// carry the value/address, and how many carry the item id.
type Flavour struct {
	heapAddressBits int
}

// NewFlavour validates the address-field width. It must be a positive
// multiple of 8 and leave at least one byte for the id field.
func NewFlavour(heapAddressBits int) (Flavour, error) {
	if heapAddressBits%8 != 0 || heapAddressBits < 8 || heapAddressBits > 56 {
		return Flavour{}, fmt.Errorf("%w: heap_address_bits %d (must be a multiple of 8 in [8,56])",
			core.ErrConfigInvalid, heapAddressBits)
	}
	return Flavour{heapAddressBits: heapAddressBits}, nil
}

// HeapAddressBits returns the address-field width in bits.
func (f Flavour) HeapAddressBits() int { return f.heapAddressBits }

// ImmediateSize returns the number of value bytes an immediate pointer can
// carry. Buffer items no longer than this ride inside their item pointer.
func (f Flavour) ImmediateSize() int { return f.heapAddressBits / 8 }

// idBits returns the width of the id field (one bit is spent on the mode flag).
func (f Flavour) idBits() int { return 63 - f.heapAddressBits }

// ControlWord packs word 0 of a packet carrying n item pointers beyond the
// four mandatory ones.
func (f Flavour) ControlWord(n int) uint64 {
	idBytes := uint64(8 - f.heapAddressBits/8)
	addrBytes := uint64(f.heapAddressBits / 8)
	return magicVersion<<48 | idBytes<<40 | addrBytes<<32 | uint64(n+4)
}
