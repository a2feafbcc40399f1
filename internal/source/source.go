// Package source implements heap sources for the send pipeline.
package source

import (
	"context"
	"fmt"

	"firestige.xyz/strix/internal/config"
	"firestige.xyz/strix/internal/core"
)

// Source produces heaps for the pipeline. Next returns io.EOF once the
// source is exhausted. Heap counters are assigned by the pipeline, not the
// source.
type Source interface {
	Next(ctx context.Context) (*core.Heap, error)
	Close() error
}

// Item IDs used by the built-in sources.
const (
	timestampID = uint64(0x1600) // coarse capture/sample timestamp
	dataBaseID  = uint64(0x3300) // first data item; siblings count up from here
)

// New creates the source selected by cfg. Per-source options are decoded
// from cfg.Options by the source itself.
func New(cfg config.SourceConfig) (Source, error) {
	switch cfg.Type {
	case "synthetic":
		return NewSyntheticSource(cfg.Options)
	case "pcap":
		return NewPcapSource(cfg.Options)
	default:
		return nil, fmt.Errorf("%w: %q", core.ErrSourceUnknown, cfg.Type)
	}
}
