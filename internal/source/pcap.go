package source

import (
	"context"
	"fmt"
	"os"

	"github.com/google/gopacket/pcapgo"
	"github.com/mitchellh/mapstructure"

	"firestige.xyz/strix/internal/core"
)

// PcapOptions configures the pcap replay source.
type PcapOptions struct {
	// Path is the pcap file to replay.
	Path string `mapstructure:"path"`
}

// PcapSource replays a capture file as a heap stream: one heap per captured
// packet, carrying an inline timestamp item and the raw frame bytes as a
// buffer item.
type PcapSource struct {
	f *os.File
	r *pcapgo.Reader
}

// NewPcapSource decodes options and opens the capture file.
func NewPcapSource(options map[string]any) (*PcapSource, error) {
	var opts PcapOptions
	if err := mapstructure.Decode(options, &opts); err != nil {
		return nil, fmt.Errorf("pcap source options: %w", err)
	}
	if opts.Path == "" {
		return nil, fmt.Errorf("%w: pcap source requires 'path'", core.ErrConfigInvalid)
	}
	f, err := os.Open(opts.Path)
	if err != nil {
		return nil, fmt.Errorf("open pcap %s: %w", opts.Path, err)
	}
	r, err := pcapgo.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("read pcap %s: %w", opts.Path, err)
	}
	return &PcapSource{f: f, r: r}, nil
}

// Next reads the next captured packet and wraps it as a heap. Returns io.EOF
// at end of file.
//
// ReadPacketData allocates a fresh slice per packet (unlike the zero-copy
// variant), so the heap's buffer item safely outlives later reads.
func (s *PcapSource) Next(ctx context.Context) (*core.Heap, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, ci, err := s.r.ReadPacketData()
	if err != nil {
		return nil, err
	}
	return &core.Heap{
		Items: []core.Item{
			core.NewInlineItem(timestampID, uint64(ci.Timestamp.Unix())),
			core.NewBufferItem(dataBaseID, data),
		},
	}, nil
}

// Close closes the capture file.
func (s *PcapSource) Close() error { return s.f.Close() }
