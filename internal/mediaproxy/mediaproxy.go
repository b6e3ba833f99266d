// Package mediaproxy is the on-demand remux/transcode proxy (spec §4.4): it
// spawns ffmpeg against the partially-downloaded chosen file and streams a
// fragmented MP4 to the client, propagating Range and unwinding cleanly on
// client disconnect or transcoder death. Process-lifecycle shape is grounded
// on the TorrX streaming handler/FSM pair in other_examples (the only
// pack source that drives a subprocess byte pipe for playback).
package mediaproxy

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/streamforge/gateway/internal/gwerrors"
)

const (
	readChunkSize    = 256 << 10 // ≥256 KB chunks (spec §4.4)
	probeSizeBytes   = 5 << 20   // ≤5 MB
	analyzeDuration  = 3 * time.Second
	killGracePeriod  = 3 * time.Second
)

// Proxy spawns ffmpeg to remux or transcode a video file into a browser-
// playable fragmented MP4 stream.
type Proxy struct {
	ffmpegPath string
}

// New builds a Proxy invoking ffmpegPath.
func New(ffmpegPath string) *Proxy {
	return &Proxy{ffmpegPath: ffmpegPath}
}

// Session is one spawned ffmpeg process streaming to a single client.
type Session struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	stderr *lastLines
}

// Open starts ffmpeg against videoPath. seekSeconds synthesizes a Range-like
// position seek when piping from a local spawn (spec §4.4: "range is
// synthesized by position-seeking the output buffer").
func (p *Proxy) Open(ctx context.Context, videoPath string, seekSeconds float64) (*Session, error) {
	args := buildArgs(videoPath, seekSeconds, isRemuxable(videoPath))

	cmd := exec.CommandContext(ctx, p.ffmpegPath, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, gwerrors.Wrap(gwerrors.KindUnknown, "open ffmpeg stdout pipe", err)
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return nil, gwerrors.Wrap(gwerrors.KindUnknown, "open ffmpeg stderr pipe", err)
	}

	tail := newLastLines(40)
	go tail.drain(stderrPipe)

	if err := cmd.Start(); err != nil {
		return nil, gwerrors.Wrap(gwerrors.KindUnknown, "start ffmpeg", err)
	}

	log.Infof("mediaproxy: spawned ffmpeg pid=%d for %s", cmd.Process.Pid, videoPath)

	return &Session{cmd: cmd, stdout: stdout, stderr: tail}, nil
}

// isRemuxable reports whether videoPath's container allows the codec-copy
// fast path (spec §4.4.A: chosen file extension is .mp4).
func isRemuxable(videoPath string) bool {
	return strings.EqualFold(filepath.Ext(videoPath), ".mp4")
}

func buildArgs(videoPath string, seekSeconds float64, remux bool) []string {
	args := []string{"-hide_banner", "-loglevel", "warning"}
	if seekSeconds > 0 {
		args = append(args, "-ss", fmt.Sprintf("%.3f", seekSeconds))
	}
	args = append(args,
		"-probesize", fmt.Sprintf("%d", probeSizeBytes),
		"-analyzeduration", fmt.Sprintf("%d", analyzeDuration.Microseconds()),
		"-i", videoPath,
	)

	if remux {
		args = append(args, "-c:v", "copy")
	} else {
		args = append(args,
			"-c:v", "libx264",
			"-preset", "ultrafast",
			"-tune", "zerolatency",
			"-crf", "28",
			"-g", "30",
		)
	}
	args = append(args,
		"-c:a", "aac", "-b:a", "128k",
		"-movflags", "frag_keyframe+empty_moov+faststart",
		"-f", "mp4",
		"pipe:1",
	)
	return args
}

// Stream reads ffmpeg stdout through a readChunkSize buffer and writes each
// read to w as soon as it arrives, without extra internal buffering (spec §4.4).
func (s *Session) Stream(w io.Writer) (bytesWritten int64, err error) {
	buf := make([]byte, readChunkSize)
	for {
		n, rerr := s.stdout.Read(buf)
		if n > 0 {
			wn, werr := w.Write(buf[:n])
			bytesWritten += int64(wn)
			if werr != nil {
				return bytesWritten, werr
			}
		}
		if rerr == io.EOF {
			return bytesWritten, nil
		}
		if rerr != nil {
			return bytesWritten, rerr
		}
	}
}

// Close terminates ffmpeg, giving it a grace period before killing, and
// classifies the outcome per spec §4.4: pipe-broken with bytes already sent
// closes quietly; zero bytes sent surfaces as a 503-worthy error.
func (s *Session) Close(bytesWritten int64) error {
	done := make(chan error, 1)
	go func() { done <- s.cmd.Wait() }()

	if s.cmd.Process != nil {
		_ = s.cmd.Process.Signal(interruptSignal())
	}

	select {
	case <-done:
	case <-time.After(killGracePeriod):
		if s.cmd.Process != nil {
			_ = s.cmd.Process.Kill()
		}
		<-done
	}

	if bytesWritten == 0 {
		tail := s.stderr.String()
		log.Warnf("mediaproxy: ffmpeg exited before first byte: %s", tail)
		return gwerrors.Wrap(gwerrors.KindUpstreamUnavailable, "transcoder produced zero bytes: "+tail, gwerrors.ErrSessionNotReady)
	}
	return nil
}

// lastLines retains the last n lines of a stream, used to surface the tail
// of ffmpeg's stderr at WARN on abnormal exit (spec §4.4).
type lastLines struct {
	n     int
	lines []string
}

func newLastLines(n int) *lastLines {
	return &lastLines{n: n}
}

func (l *lastLines) drain(r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		l.lines = append(l.lines, scanner.Text())
		if len(l.lines) > l.n {
			l.lines = l.lines[1:]
		}
	}
}

func (l *lastLines) String() string {
	return strings.Join(l.lines, " | ")
}
