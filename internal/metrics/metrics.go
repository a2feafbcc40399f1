// Package metrics implements Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HeapsTotal counts heaps handed to the packetizer per stream
	HeapsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strix_heaps_total",
			Help: "Total number of heaps packetized",
		},
		[]string{"stream"},
	)

	// PacketsSentTotal counts packets delivered to the transport
	PacketsSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strix_packets_sent_total",
			Help: "Total number of packets written to the transport",
		},
		[]string{"stream"},
	)

	// BytesSentTotal counts wire bytes delivered to the transport
	BytesSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strix_bytes_sent_total",
			Help: "Total number of wire bytes written to the transport",
		},
		[]string{"stream"},
	)

	// RingDropsTotal counts packets dropped after exhausting push retries
	RingDropsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strix_ring_drops_total",
			Help: "Total number of packets dropped because the ring stayed full",
		},
		[]string{"stream"},
	)

	// SendErrorsTotal counts transport write failures
	SendErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strix_send_errors_total",
			Help: "Total number of transport write failures",
		},
		[]string{"stream"},
	)

	// RingOccupancy tracks the current ring fill level
	RingOccupancy = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "strix_ring_occupancy",
			Help: "Current number of packets queued in the ring buffer",
		},
		[]string{"stream"},
	)

	// HeapBuildSeconds measures heap packetization latency
	HeapBuildSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "strix_heap_build_seconds",
			Help:    "Time spent slicing one heap into packets in seconds",
			Buckets: prometheus.ExponentialBuckets(0.000001, 2, 20), // 1µs to ~1s
		},
		[]string{"stream"},
	)
)
