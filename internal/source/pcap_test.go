package source

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/strix/internal/core"
)

// writePcap creates a capture file with the given frames, one second apart.
func writePcap(t *testing.T, frames [][]byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "capture.pcap")

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := pcapgo.NewWriter(f)
	require.NoError(t, w.WriteFileHeader(65536, layers.LinkTypeEthernet))

	base := time.Unix(1700000000, 0)
	for i, frame := range frames {
		ci := gopacket.CaptureInfo{
			Timestamp:     base.Add(time.Duration(i) * time.Second),
			CaptureLength: len(frame),
			Length:        len(frame),
		}
		require.NoError(t, w.WritePacket(ci, frame))
	}
	return path
}

func TestPcapSourceReplaysFrames(t *testing.T) {
	frames := [][]byte{
		{0xDE, 0xAD, 0xBE, 0xEF},
		{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09},
	}
	path := writePcap(t, frames)

	s, err := NewPcapSource(map[string]any{"path": path})
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	for i, frame := range frames {
		h, err := s.Next(ctx)
		require.NoError(t, err, "frame %d", i)
		require.Len(t, h.Items, 2)

		ts := h.Items[0]
		assert.True(t, ts.Inline)
		assert.Equal(t, uint64(1700000000+i), ts.Immediate)

		data := h.Items[1]
		assert.False(t, data.Inline)
		assert.Equal(t, frame, data.Buffer)
	}

	_, err = s.Next(ctx)
	assert.ErrorIs(t, err, io.EOF)
}

func TestPcapSourceRequiresPath(t *testing.T) {
	_, err := NewPcapSource(nil)
	assert.ErrorIs(t, err, core.ErrConfigInvalid)
}

func TestPcapSourceMissingFile(t *testing.T) {
	_, err := NewPcapSource(map[string]any{"path": "/nonexistent/capture.pcap"})
	assert.Error(t, err)
}
