// Package ingest receives streaming measurement events from the perception
// pipeline over UDP and applies them to the fusion graph.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/banshee-data/frame.fusion/internal/geom"
	"github.com/banshee-data/frame.fusion/internal/monitoring"
	"github.com/banshee-data/frame.fusion/internal/timeutil"
)

// Event is the wire form of one measurement: the observed transform between
// two frames, tagged with the key of the sensor channel that produced it.
type Event struct {
	From           string     `json:"from"`
	To             string     `json:"to"`
	Key            string     `json:"key"`
	Rot            [4]float64 `json:"rot"`
	Origin         [3]float64 `json:"origin"`
	Weight         float64    `json:"weight"`
	TimestampNanos int64      `json:"timestamp_ns"`
}

// Transform converts the event payload into a geom.Transform.
func (e Event) Transform() geom.Transform {
	return geom.Transform{
		Rotation: geom.Quat{X: e.Rot[0], Y: e.Rot[1], Z: e.Rot[2], W: e.Rot[3]},
		Origin:   geom.Vec3{X: e.Origin[0], Y: e.Origin[1], Z: e.Origin[2]},
	}
}

// Validate rejects events that cannot be applied to any graph.
func (e Event) Validate() error {
	if e.From == "" || e.To == "" {
		return fmt.Errorf("event missing 'from' or 'to' frame")
	}
	if e.Key == "" {
		return fmt.Errorf("event missing measurement 'key'")
	}
	if e.Rot == [4]float64{} {
		return fmt.Errorf("event rotation is all zeros")
	}
	return nil
}

// GraphSink applies validated measurement events to the fusion graph.
type GraphSink interface {
	ApplyMeasurement(ev Event) error
}

// Recorder persists measurement events for later diagnosis. Optional.
type Recorder interface {
	RecordMeasurement(from, to, key string, rot [4]float64, origin [3]float64, weight float64, observedAtNanos int64) error
}

// UDPListenerConfig contains configuration options for the UDP listener.
type UDPListenerConfig struct {
	Address     string
	RcvBuf      int
	LogInterval time.Duration
	Sink        GraphSink
	Recorder    Recorder       // optional
	Clock       timeutil.Clock // optional, defaults to RealClock
}

// UDPListener receives measurement events as JSON datagrams and feeds them
// to a GraphSink. Malformed or unapplicable datagrams are counted and
// logged, never fatal: one bad sensor must not take down ingestion.
type UDPListener struct {
	address     string
	rcvBuf      int
	logInterval time.Duration
	sink        GraphSink
	recorder    Recorder
	clock       timeutil.Clock

	received int64
	applied  int64
	rejected int64
}

// NewUDPListener creates a listener from the provided configuration.
func NewUDPListener(cfg UDPListenerConfig) *UDPListener {
	logInterval := cfg.LogInterval
	if logInterval == 0 {
		logInterval = time.Minute
	}

	var clock timeutil.Clock = timeutil.RealClock{}
	if cfg.Clock != nil {
		clock = cfg.Clock
	}

	return &UDPListener{
		address:     cfg.Address,
		rcvBuf:      cfg.RcvBuf,
		logInterval: logInterval,
		sink:        cfg.Sink,
		recorder:    cfg.Recorder,
		clock:       clock,
	}
}

// Listen receives datagrams until the context is cancelled.
func (l *UDPListener) Listen(ctx context.Context) error {
	addr, err := net.ResolveUDPAddr("udp", l.address)
	if err != nil {
		return fmt.Errorf("failed to resolve UDP address %q: %w", l.address, err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %q: %w", l.address, err)
	}
	defer conn.Close()

	if l.rcvBuf > 0 {
		if err := conn.SetReadBuffer(l.rcvBuf); err != nil {
			monitoring.Logf("ingest: failed to set receive buffer to %d: %v", l.rcvBuf, err)
		}
	}

	monitoring.Logf("ingest: listening for measurement events on %s", l.address)

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	lastLog := l.clock.Now()
	buf := make([]byte, 64*1024)

	for {
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("UDP read failed: %w", err)
		}

		l.received++
		if err := l.handleDatagram(buf[:n]); err != nil {
			l.rejected++
			monitoring.Logf("ingest: dropped event: %v", err)
		} else {
			l.applied++
		}

		if l.clock.Since(lastLog) >= l.logInterval {
			l.LogStats()
			lastLog = l.clock.Now()
		}
	}
}

// handleDatagram parses, validates and applies one event.
func (l *UDPListener) handleDatagram(data []byte) error {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return fmt.Errorf("failed to unmarshal event JSON: %w", err)
	}
	if err := ev.Validate(); err != nil {
		return err
	}
	if ev.TimestampNanos == 0 {
		ev.TimestampNanos = l.clock.Now().UnixNano()
	}

	if err := l.sink.ApplyMeasurement(ev); err != nil {
		return err
	}

	if l.recorder != nil {
		if err := l.recorder.RecordMeasurement(ev.From, ev.To, ev.Key, ev.Rot, ev.Origin, ev.Weight, ev.TimestampNanos); err != nil {
			// Recording is telemetry; the measurement is already applied.
			monitoring.Logf("ingest: failed to record event: %v", err)
		}
	}
	return nil
}

// Stats returns the listener counters: datagrams received, events applied,
// events rejected.
func (l *UDPListener) Stats() (received, applied, rejected int64) {
	return l.received, l.applied, l.rejected
}

// LogStats logs the listener counters.
func (l *UDPListener) LogStats() {
	monitoring.Logf("ingest: %d received, %d applied, %d rejected", l.received, l.applied, l.rejected)
}
