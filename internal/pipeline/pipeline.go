// Package pipeline implements the heap streaming pipeline engine.
package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"firestige.xyz/strix/internal/core"
	"firestige.xyz/strix/internal/metrics"
	"firestige.xyz/strix/internal/ringbuffer"
	"firestige.xyz/strix/internal/source"
	"firestige.xyz/strix/internal/spead"
	"firestige.xyz/strix/internal/transport"
)

// Config contains pipeline configuration.
type Config struct {
	StreamName    string // metrics label, default "default"
	Source        source.Source
	Writer        transport.Writer
	Flavour       spead.Flavour
	MaxPacketSize int
	RingCapacity  int           // packet ring capacity, default 64
	Senders       int           // consumer goroutines, default 1
	PushRetries   int           // retries on a full ring before dropping, default 40
	RetryBackoff  time.Duration // pause between retries, default 1ms
}

// Pipeline drives one stream: a producer goroutine slices heaps into packets
// and pushes them into the ring; sender goroutines drain the ring into the
// transport. The ring is the only concurrency boundary — the generator
// itself is sequential and owned by the producer.
type Pipeline struct {
	cfg  Config
	ring *ringbuffer.Ring[core.Packet]

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	nextHeapCnt uint64
}

// New creates a new pipeline.
func New(cfg Config) *Pipeline {
	if cfg.StreamName == "" {
		cfg.StreamName = "default"
	}
	if cfg.RingCapacity <= 0 {
		cfg.RingCapacity = 64
	}
	if cfg.Senders <= 0 {
		cfg.Senders = 1
	}
	if cfg.PushRetries <= 0 {
		cfg.PushRetries = 40
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = time.Millisecond
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Pipeline{
		cfg:    cfg,
		ring:   ringbuffer.New[core.Packet](cfg.RingCapacity),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start starts the producer and sender goroutines.
func (p *Pipeline) Start() error {
	slog.Info("pipeline starting",
		"stream", p.cfg.StreamName,
		"senders", p.cfg.Senders,
		"ring_capacity", p.cfg.RingCapacity)

	p.wg.Add(1)
	go p.produceLoop()

	for i := 0; i < p.cfg.Senders; i++ {
		p.wg.Add(1)
		go p.sendLoop(i)
	}

	return nil
}

// Wait blocks until the source is exhausted and all queued packets have been
// transmitted, then flushes the transport.
func (p *Pipeline) Wait() error {
	p.wg.Wait()
	return p.cfg.Writer.Flush()
}

// Stop aborts the pipeline. Queued packets are still drained and sent — the
// ring's stop semantics guarantee nothing already queued is lost.
func (p *Pipeline) Stop() error {
	slog.Info("pipeline stopping", "stream", p.cfg.StreamName)
	p.cancel()
	p.ring.Stop()
	return p.Wait()
}

// produceLoop reads heaps from the source and packetizes them, bracketed by
// stream-control heaps so receivers can detect start and end of stream.
func (p *Pipeline) produceLoop() {
	defer p.wg.Done()
	defer p.ring.Stop()

	if !p.packetize(controlHeap(core.CtrlStreamStart)) {
		return
	}

	for {
		h, err := p.cfg.Source.Next(p.ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if p.ctx.Err() != nil {
				return
			}
			slog.Error("source failed", "stream", p.cfg.StreamName, "error", err)
			break
		}
		if !p.packetize(h) {
			return
		}
		metrics.HeapsTotal.WithLabelValues(p.cfg.StreamName).Inc()
	}

	p.packetize(controlHeap(core.CtrlStreamStop))
}

// packetize slices one heap into packets and pushes them into the ring.
// Returns false when the pipeline is shutting down.
func (p *Pipeline) packetize(h *core.Heap) bool {
	h.Cnt = p.nextHeapCnt
	p.nextHeapCnt++

	gen, err := spead.NewGenerator(h, p.cfg.Flavour, p.cfg.MaxPacketSize)
	if err != nil {
		// Heap-specific range failure; the stream configuration itself was
		// validated at startup. Skip the heap rather than kill the stream.
		slog.Error("heap rejected", "stream", p.cfg.StreamName, "heap_cnt", h.Cnt, "error", err)
		return true
	}

	start := time.Now()
	for {
		pkt, ok := gen.Next()
		if !ok {
			break
		}
		if !p.push(pkt) {
			return false
		}
	}
	metrics.HeapBuildSeconds.WithLabelValues(p.cfg.StreamName).Observe(time.Since(start).Seconds())
	return true
}

// push enqueues one packet with bounded retry. A persistently full ring drops
// the packet (backpressure policy: the producer must not block forever).
// Returns false when the pipeline is shutting down.
func (p *Pipeline) push(pkt core.Packet) bool {
	for attempt := 0; ; attempt++ {
		err := p.ring.TryPush(pkt)
		switch {
		case err == nil:
			metrics.RingOccupancy.WithLabelValues(p.cfg.StreamName).Set(float64(p.ring.Len()))
			return true
		case errors.Is(err, ringbuffer.ErrStopped):
			return false
		}
		if attempt >= p.cfg.PushRetries {
			metrics.RingDropsTotal.WithLabelValues(p.cfg.StreamName).Inc()
			slog.Warn("packet dropped, ring full", "stream", p.cfg.StreamName)
			return true
		}
		select {
		case <-p.ctx.Done():
			return false
		case <-time.After(p.cfg.RetryBackoff):
		}
	}
}

// sendLoop drains the ring into the transport until the ring is stopped and
// empty.
func (p *Pipeline) sendLoop(id int) {
	defer p.wg.Done()

	for {
		pkt, err := p.ring.Pop()
		if err != nil {
			// ErrStopped: drained after shutdown.
			slog.Debug("sender exiting", "stream", p.cfg.StreamName, "sender", id)
			return
		}
		if err := p.cfg.Writer.WritePacket(pkt); err != nil {
			metrics.SendErrorsTotal.WithLabelValues(p.cfg.StreamName).Inc()
			slog.Error("send failed", "stream", p.cfg.StreamName, "error", err)
			continue
		}
		metrics.PacketsSentTotal.WithLabelValues(p.cfg.StreamName).Inc()
		metrics.BytesSentTotal.WithLabelValues(p.cfg.StreamName).Add(float64(pkt.Len()))
	}
}

// controlHeap builds a single-item heap carrying a stream-control marker.
func controlHeap(value uint64) *core.Heap {
	return &core.Heap{
		Items: []core.Item{core.NewInlineItem(core.StreamCtrlID, value)},
	}
}
