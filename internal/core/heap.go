// Package core defines core data structures with zero external dependencies.
package core

// Item is a single named value within a heap. It is either inline (the value
// rides in the item pointer itself) or buffer-backed (a zero-copy reference
// to externally owned memory).
type Item struct {
	ID uint64

	// Inline discriminates the two representations.
	Inline    bool
	Immediate uint64 // value, valid when Inline
	Buffer    []byte // zero-copy slice, valid when !Inline
}

// NewInlineItem creates an item carrying its value directly.
func NewInlineItem(id, value uint64) Item {
	return Item{ID: id, Inline: true, Immediate: value}
}

// NewBufferItem creates an item referencing an external buffer. The buffer is
// borrowed, not copied: it must stay alive and unmodified for as long as any
// packet derived from the enclosing heap exists.
func NewBufferItem(id uint64, buf []byte) Item {
	return Item{ID: id, Buffer: buf}
}

// Heap is one logical unit of data: an ordered list of items identified by a
// heap counter. A heap handed to a packet generator is immutable for the
// generator's lifetime and for the lifetime of every packet it emits.
type Heap struct {
	Cnt   uint64 // heap counter, identifies this heap on the wire
	Items []Item
}

// PayloadSize returns the number of payload bytes the heap contributes for a
// given immediate capacity (address-field width in bytes). Inline items and
// buffer items short enough to ride in an immediate pointer contribute none.
func (h *Heap) PayloadSize(maxImmediate int) int {
	total := 0
	for _, it := range h.Items {
		if !it.Inline && len(it.Buffer) > maxImmediate {
			total += len(it.Buffer)
		}
	}
	return total
}
