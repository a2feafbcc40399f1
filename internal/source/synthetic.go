package source

import (
	"context"
	"fmt"
	"io"

	"github.com/mitchellh/mapstructure"

	"firestige.xyz/strix/internal/core"
)

// SyntheticOptions configures the synthetic source.
type SyntheticOptions struct {
	// Heaps is how many heaps to produce. Default 16.
	Heaps int `mapstructure:"heaps"`

	// ItemsPerHeap is the number of buffer-backed data items per heap.
	// Default 1.
	ItemsPerHeap int `mapstructure:"items_per_heap"`

	// ItemSize is the byte length of each data item. Default 65536.
	ItemSize int `mapstructure:"item_size"`
}

// SyntheticSource produces deterministically filled heaps, mainly for
// benchmarks and soak tests. Heap n carries an inline timestamp item and
// ItemsPerHeap buffer items whose bytes depend only on (n, item, offset).
type SyntheticSource struct {
	opts     SyntheticOptions
	produced int
}

// NewSyntheticSource decodes options and creates the source.
func NewSyntheticSource(options map[string]any) (*SyntheticSource, error) {
	opts := SyntheticOptions{
		Heaps:        16,
		ItemsPerHeap: 1,
		ItemSize:     65536,
	}
	if err := mapstructure.Decode(options, &opts); err != nil {
		return nil, fmt.Errorf("synthetic source options: %w", err)
	}
	if opts.Heaps < 0 || opts.ItemsPerHeap < 1 || opts.ItemSize < 1 {
		return nil, fmt.Errorf("%w: synthetic source options out of range", core.ErrConfigInvalid)
	}
	return &SyntheticSource{opts: opts}, nil
}

// Next produces the next heap, or io.EOF after the configured count.
func (s *SyntheticSource) Next(ctx context.Context) (*core.Heap, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.produced >= s.opts.Heaps {
		return nil, io.EOF
	}
	n := s.produced
	s.produced++

	items := make([]core.Item, 0, s.opts.ItemsPerHeap+1)
	items = append(items, core.NewInlineItem(timestampID, uint64(n)))
	for i := 0; i < s.opts.ItemsPerHeap; i++ {
		buf := make([]byte, s.opts.ItemSize)
		for j := range buf {
			buf[j] = byte(n + i + j)
		}
		items = append(items, core.NewBufferItem(dataBaseID+uint64(i), buf))
	}
	return &core.Heap{Items: items}, nil
}

// Close is a no-op for the synthetic source.
func (s *SyntheticSource) Close() error { return nil }
