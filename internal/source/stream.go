package source

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/otvision-go/otvision/internal/config"
	"github.com/otvision-go/otvision/internal/domain"
	"github.com/otvision-go/otvision/internal/observer"
	"github.com/otvision-go/otvision/internal/perr"
	"github.com/otvision-go/otvision/internal/util"
)

// DefaultReadFailThreshold is the number of consecutive failed frame
// reads that triggers a capture reopen (spec §4.1 step 2c).
const DefaultReadFailThreshold = 5

// probeTimeout bounds every blocking socket operation C1's stream
// variant performs, per spec §5's "any blocking socket operation must
// have a bounded timeout (5s default)".
const probeTimeout = 5 * time.Second

// reconnectBackoff is the fixed delay between RTSP connectivity
// retries (spec §4.1 step 2b, §7's recovery policy).
const reconnectBackoff = 5 * time.Second

// StreamSource is C1's RTSP variant: an unbounded sequence segmented by
// flush-buffer size rather than by file boundary.
type StreamSource struct {
	Flushed       observer.Subject[domain.FlushEvent]
	NewVideoStart observer.Subject[domain.NewVideoStartEvent]

	cfg config.StreamConfig

	mu      sync.Mutex
	stopped bool
	stopCh  chan struct{}
}

// NewStreamSource builds a StreamSource. cfg must already satisfy the
// t_min/t_miss_max < FlushBufferSize invariant checked by
// config.Config.Validate.
func NewStreamSource(cfg config.StreamConfig) *StreamSource {
	return &StreamSource{cfg: cfg, stopCh: make(chan struct{})}
}

// Stop requests the produce loop exit before its next frame-read
// attempt, per spec §5's cancellation contract.
func (s *StreamSource) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stopped {
		s.stopped = true
		close(s.stopCh)
	}
}

func (s *StreamSource) stopRequested() bool {
	select {
	case <-s.stopCh:
		return true
	default:
		return false
	}
}

// Produce runs the reconnect/read/segment loop until Stop is called or
// ctx is cancelled, calling yield for every decoded frame.
func (s *StreamSource) Produce(ctx context.Context, yield func(domain.Frame) error) error {
	if err := validateURL(s.cfg.Source); err != nil {
		return perr.New(perr.ConfigInvalid, s.cfg.Source, err)
	}

	videoStart := time.Now().UTC()
	outdated := true
	counter := 0
	segmentStart := time.Now()

	for {
		if s.stopRequested() || ctx.Err() != nil {
			s.flush(counter, s.cfg.OutputFPS, segmentStart)
			return ctx.Err()
		}

		reader, probe, err := s.open(ctx)
		if err != nil {
			return err
		}

		failures := 0
	readLoop:
		for {
			if s.stopRequested() || ctx.Err() != nil {
				reader.Close()
				s.flush(counter, s.cfg.OutputFPS, segmentStart)
				return ctx.Err()
			}

			raw, ok, err := reader.Read()
			if err != nil || !ok {
				failures++
				if failures >= DefaultReadFailThreshold {
					break readLoop
				}
				continue
			}
			failures = 0

			image, _, _, rerr := rotate(raw, probe.Width, probe.Height, probe.Rotation)
			if rerr != nil {
				reader.Close()
				return perr.New(perr.DecodeFailure, s.cfg.Source, rerr)
			}

			counter++
			occurrence := time.Now().UTC()
			outputPath := s.outputPath(videoStart)
			if outdated {
				videoStart = occurrence
				outdated = false
				outputPath = s.outputPath(videoStart)
				s.NewVideoStart.Notify(domain.NewVideoStartEvent{
					Output: outputPath, Width: probe.Width, Height: probe.Height, FPS: s.cfg.OutputFPS,
				})
			}

			frame := domain.Frame{
				No:         domain.FrameNo(counter),
				Occurrence: occurrence,
				Source:     s.cfg.Source,
				Output:     outputPath,
				Image:      image,
			}
			if err := yield(frame); err != nil {
				reader.Close()
				return err
			}

			if counter%s.cfg.FlushBufferSize == 0 {
				s.flush(counter, s.cfg.OutputFPS, segmentStart)
				outdated = true
				counter = 0
				segmentStart = time.Now()
			}
		}
		reader.Close()
	}
}

func (s *StreamSource) flush(frameCount int, fps float64, start time.Time) {
	if frameCount == 0 {
		return
	}
	seconds := float64(frameCount) / nonZero(fps)
	s.Flushed.Notify(domain.FlushEvent{SourceMetadata: domain.SourceMetadata{
		Source:    s.cfg.Source,
		Output:    s.cfg.SaveDir,
		Duration:  time.Duration(seconds+0.5) * time.Second,
		FPS:       fps,
		StartTime: start,
	}})
}

func (s *StreamSource) outputPath(videoStart time.Time) string {
	return fmt.Sprintf("%s/%s_FR%s_%s.mp4",
		s.cfg.SaveDir, s.cfg.Name, util.ParseFPSRound(s.cfg.OutputFPS), util.FormatTimestamp(videoStart))
}

// open probes connectivity (retrying every 5s, unbounded, per spec
// §4.1 step 2b) and then starts a decode subprocess.
func (s *StreamSource) open(ctx context.Context) (*FrameReader, Probe, error) {
	err := retry.Do(
		func() error { return probeConnectivity(s.cfg.Source) },
		retry.Context(ctx),
		retry.Attempts(0),
		retry.Delay(reconnectBackoff),
		retry.DelayType(retry.FixedDelay),
	)
	if err != nil {
		return nil, Probe{}, perr.New(perr.DecodeFailure, s.cfg.Source, err)
	}

	probe, err := ProbeStream(s.cfg.Source)
	if err != nil {
		return nil, Probe{}, err
	}
	if probe.Rotation%90 != 0 {
		return nil, Probe{}, perr.New(perr.DecodeFailure, s.cfg.Source, fmt.Errorf("rotation %d degrees is not a multiple of 90", probe.Rotation))
	}

	reader, err := OpenStream(s.cfg.Source, probe)
	if err != nil {
		return nil, Probe{}, err
	}
	return reader, probe, nil
}

// validateURL enforces spec §4.1's "an invalid URL (no host or port)
// fails the stream with a structured error".
func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parsing RTSP URL: %w", err)
	}
	if u.Hostname() == "" {
		return fmt.Errorf("RTSP URL %q has no host", raw)
	}
	if u.Port() == "" {
		return fmt.Errorf("RTSP URL %q has no port", raw)
	}
	return nil
}

// probeConnectivity sends a minimal RTSP DESCRIBE request over a raw
// TCP socket, bounded by probeTimeout, per spec §4.1 step 2b. No RTSP
// client library exists anywhere in the retrieval corpus, so the
// request is hand-rolled the same way the protocol itself is a short,
// line-oriented text format over TCP.
func probeConnectivity(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	addr := net.JoinHostPort(u.Hostname(), u.Port())

	conn, err := net.DialTimeout("tcp", addr, probeTimeout)
	if err != nil {
		return fmt.Errorf("dialing %s: %w", addr, err)
	}
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(probeTimeout))
	request := fmt.Sprintf("DESCRIBE %s RTSP/1.0\r\nCSeq: 1\r\nAccept: application/sdp\r\n\r\n", rawURL)
	if _, err := conn.Write([]byte(request)); err != nil {
		return fmt.Errorf("sending DESCRIBE: %w", err)
	}

	response := make([]byte, 64)
	if _, err := conn.Read(response); err != nil {
		return fmt.Errorf("reading DESCRIBE response: %w", err)
	}
	return nil
}
