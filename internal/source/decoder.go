// Package source implements C1, the frame source: a file variant that
// reads finite video containers and an RTSP variant that reads an
// unbounded stream, both producing the same domain.Frame sequence.
//
// Neither variant links a codec or RTSP client library — none of the
// pack's examples vendor one (no gocv/ffmpeg-binding/gortsplib
// dependency appears anywhere in the corpus) — so both shell out to the
// ffmpeg/ffprobe binaries on PATH: build an *exec.Cmd, stream its
// stdout, surface a structured error when the binary is missing.
package source

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"

	"github.com/otvision-go/otvision/internal/perr"
)

const (
	ffprobeBinary = "ffprobe"
	ffmpegBinary  = "ffmpeg"
	bytesPerPixel = 3 // rawvideo rgb24
)

// Probe holds the container properties C1 needs before it can decode:
// dimensions, frame rate, duration and any rotation side-datum.
type Probe struct {
	Width    int
	Height   int
	FPS      float64
	Duration float64 // seconds; 0 if unknown (e.g. a live stream)
	Rotation int     // degrees, normalized to [0, 360)
}

// IsFFmpegAvailable reports whether both ffmpeg and ffprobe are on
// PATH.
func IsFFmpegAvailable() bool {
	_, errProbe := exec.LookPath(ffprobeBinary)
	_, errEnc := exec.LookPath(ffmpegBinary)
	return errProbe == nil && errEnc == nil
}

// ProbeFile inspects a video file with ffprobe.
func ProbeFile(path string) (Probe, error) {
	cmd := exec.Command(ffprobeBinary,
		"-v", "error",
		"-print_format", "json",
		"-show_format", "-show_streams",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return Probe{}, perr.New(perr.IoFailure, path, fmt.Errorf("ffprobe: %w", err))
	}
	return parseProbeJSON(out, path)
}

// ProbeStream inspects a live RTSP source with ffprobe. It passes no
// analyze-window or timeout option to ffprobe and waits until the
// ffprobe process exits.
func ProbeStream(url string) (Probe, error) {
	cmd := exec.Command(ffprobeBinary,
		"-v", "error",
		"-rtsp_transport", "tcp",
		"-print_format", "json",
		"-show_format", "-show_streams",
		url,
	)
	out, err := cmd.Output()
	if err != nil {
		return Probe{}, perr.New(perr.DecodeFailure, url, fmt.Errorf("ffprobe: %w", err))
	}
	return parseProbeJSON(out, url)
}

type probeDoc struct {
	Streams []struct {
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		RFrameRate   string `json:"r_frame_rate"`
		Tags         map[string]string `json:"tags"`
		SideDataList []struct {
			Rotation int `json:"rotation"`
		} `json:"side_data_list"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

func parseProbeJSON(out []byte, source string) (Probe, error) {
	var doc probeDoc
	if err := json.Unmarshal(out, &doc); err != nil {
		return Probe{}, perr.New(perr.DecodeFailure, source, fmt.Errorf("parsing ffprobe output: %w", err))
	}
	if len(doc.Streams) == 0 {
		return Probe{}, perr.New(perr.DecodeFailure, source, fmt.Errorf("no video stream found"))
	}
	s := doc.Streams[0]
	p := Probe{Width: s.Width, Height: s.Height}
	if f, err := parseRational(s.RFrameRate); err == nil {
		p.FPS = f
	}
	if d, err := strconv.ParseFloat(doc.Format.Duration, 64); err == nil {
		p.Duration = d
	}
	if len(s.SideDataList) > 0 {
		p.Rotation = normalizeRotation(s.SideDataList[0].Rotation)
	} else if rot, ok := s.Tags["rotate"]; ok {
		if r, err := strconv.Atoi(rot); err == nil {
			p.Rotation = normalizeRotation(r)
		}
	}
	return p, nil
}

func normalizeRotation(deg int) int {
	deg %= 360
	if deg < 0 {
		deg += 360
	}
	return deg
}

func parseRational(s string) (float64, error) {
	parts := strings.SplitN(s, "/", 2)
	if len(parts) != 2 {
		return strconv.ParseFloat(s, 64)
	}
	num, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, err
	}
	den, err := strconv.ParseFloat(parts[1], 64)
	if err != nil || den == 0 {
		return 0, fmt.Errorf("invalid frame rate %q", s)
	}
	return num / den, nil
}

// FrameReader reads successive raw RGB24 frames from a decoded
// container or stream.
type FrameReader struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	buf    *bufio.Reader
	width  int
	height int
}

// OpenFile starts decoding path into raw RGB24 frames.
func OpenFile(path string, p Probe) (*FrameReader, error) {
	return openReader(exec.Command(ffmpegBinary,
		"-v", "error",
		"-i", path,
		"-f", "rawvideo", "-pix_fmt", "rgb24",
		"-",
	), p)
}

// OpenStream starts decoding an RTSP source into raw RGB24 frames.
func OpenStream(url string, p Probe) (*FrameReader, error) {
	return openReader(exec.Command(ffmpegBinary,
		"-v", "error",
		"-rtsp_transport", "tcp",
		"-i", url,
		"-f", "rawvideo", "-pix_fmt", "rgb24",
		"-",
	), p)
}

func openReader(cmd *exec.Cmd, p Probe) (*FrameReader, error) {
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, perr.New(perr.IoFailure, cmd.Path, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, perr.New(perr.IoFailure, cmd.Path, fmt.Errorf("starting %s: %w", cmd.Path, err))
	}
	return &FrameReader{
		cmd:    cmd,
		stdout: stdout,
		buf:    bufio.NewReaderSize(stdout, 1<<20),
		width:  p.Width,
		height: p.Height,
	}, nil
}

// Read returns the next decoded frame, ok=false at a clean EOF.
func (r *FrameReader) Read() (image []byte, ok bool, err error) {
	frameSize := r.width * r.height * bytesPerPixel
	buf := make([]byte, frameSize)
	n, err := io.ReadFull(r.buf, buf)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if n != frameSize {
		return nil, false, fmt.Errorf("short frame read: %d of %d bytes", n, frameSize)
	}
	return buf, true, nil
}

// Close releases the underlying subprocess.
func (r *FrameReader) Close() error {
	_ = r.stdout.Close()
	_ = r.cmd.Wait()
	return nil
}
