package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"firestige.xyz/strix/internal/config"
	"firestige.xyz/strix/internal/core"
	"firestige.xyz/strix/internal/log"
	"firestige.xyz/strix/internal/metrics"
	"firestige.xyz/strix/internal/pipeline"
	"firestige.xyz/strix/internal/source"
	"firestige.xyz/strix/internal/spead"
	"firestige.xyz/strix/internal/transport"
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Stream heaps from the configured source",
	Long: `
Stream heaps from the configured source until it is exhausted or the process
receives SIGINT/SIGTERM. On shutdown, packets already queued in the ring are
still transmitted before the sender exits.

Examples:
  strix send -c config.yml          # Stream per config.yml
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return err
		}
		if err := log.Init(cfg.Log); err != nil {
			return err
		}
		return runSend(cfg)
	},
}

func runSend(cfg *config.GlobalConfig) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	flavour, err := spead.NewFlavour(cfg.Stream.HeapAddressBits)
	if err != nil {
		return err
	}

	src, err := source.New(cfg.Source)
	if err != nil {
		return err
	}
	defer src.Close()

	writer, err := newWriter(cfg.Transport)
	if err != nil {
		return err
	}
	defer writer.Close()

	if cfg.Metrics.Enabled {
		srv := metrics.NewServer(cfg.Metrics.Listen, cfg.Metrics.Path)
		if err := srv.Start(ctx); err != nil {
			return err
		}
		defer srv.Stop(context.Background())
	}

	p := pipeline.New(pipeline.Config{
		StreamName:    cfg.Node.ID,
		Source:        src,
		Writer:        writer,
		Flavour:       flavour,
		MaxPacketSize: cfg.Stream.MaxPacketSize,
		RingCapacity:  cfg.Stream.RingCapacity,
		Senders:       cfg.Stream.Senders,
		PushRetries:   cfg.Stream.PushRetries,
		RetryBackoff:  cfg.Stream.RetryBackoffDuration(),
	})
	if err := p.Start(); err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		p.Stop()
	}()

	start := time.Now()
	if err := p.Wait(); err != nil {
		return err
	}
	slog.Info("stream finished", "elapsed", time.Since(start))
	return nil
}

// newWriter builds the transport selected by cfg.
func newWriter(cfg config.TransportConfig) (transport.Writer, error) {
	switch cfg.Type {
	case "udp":
		return transport.NewUDPWriter(cfg.Target, cfg.BatchSize)
	case "file":
		return transport.NewFileWriter(cfg.Path)
	default:
		return nil, fmt.Errorf("%w: %q", core.ErrTransportUnknown, cfg.Type)
	}
}
