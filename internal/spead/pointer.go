package spead

import (
	"fmt"

	"firestige.xyz/strix/internal/core"
)

// immediateBit is the mode flag in bit 63 of an item pointer.
const immediateBit = uint64(1) << 63

// EncodeImmediate packs an immediate-mode item pointer: the value rides in
// the low address-field bits, no payload bytes are consumed.
func (f Flavour) EncodeImmediate(id, value uint64) (uint64, error) {
	if err := f.checkRange(id, value); err != nil {
		return 0, err
	}
	return immediateBit | id<<f.heapAddressBits | value, nil
}

// EncodeAddress packs an address-mode item pointer: the low bits carry the
// item's byte offset within the heap's payload stream.
func (f Flavour) EncodeAddress(id, address uint64) (uint64, error) {
	if err := f.checkRange(id, address); err != nil {
		return 0, err
	}
	return id<<f.heapAddressBits | address, nil
}

func (f Flavour) checkRange(id, value uint64) error {
	if id >= uint64(1)<<f.idBits() {
		return fmt.Errorf("%w: id 0x%x (max %d bits)", core.ErrIDOutOfRange, id, f.idBits())
	}
	if value >= uint64(1)<<f.heapAddressBits {
		return fmt.Errorf("%w: value 0x%x (max %d bits)", core.ErrValueOutOfRange, value, f.heapAddressBits)
	}
	return nil
}

// encodeImmediate is the unchecked fast path for values the generator has
// already validated at construction time.
func (f Flavour) encodeImmediate(id, value uint64) uint64 {
	return immediateBit | id<<f.heapAddressBits | value
}

// encodeAddress is the unchecked fast path for addresses below payloadSize,
// which the generator validates at construction time.
func (f Flavour) encodeAddress(id, address uint64) uint64 {
	return id<<f.heapAddressBits | address
}
