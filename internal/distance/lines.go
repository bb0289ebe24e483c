// internal/distance/lines.go
package distance

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/goburrow/serial"

	"github.com/tamzrod/beacon-guard/internal/clock"
)

// maxPending bounds the unterminated tail kept between polls. A reader
// that never sends a newline must not grow memory.
const maxPending = 1024

// LineOptions configures a LineSource.
type LineOptions struct {
	// Drain caps the time one Poll spends reading.
	Drain time.Duration
	// StaleAfter is the number of consecutive polls without a valid line
	// before the source warns that the reader looks disconnected.
	StaleAfter int
	Clock      clock.Clock
	Logger     *slog.Logger
}

// LineSource parses newline-terminated "d0,d1,d2,d3" lines from a
// serial port. The port must have a short read timeout so that Read
// returns once the OS buffer is empty.
type LineSource struct {
	port   io.Reader
	opts   LineOptions
	buf    []byte
	tail   []byte
	last   Snapshot
	misses int
	stale  bool
}

func NewLineSource(port io.Reader, opts LineOptions) *LineSource {
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Drain <= 0 {
		opts.Drain = 250 * time.Millisecond
	}
	return &LineSource{
		port: port,
		opts: opts,
		buf:  make([]byte, 256),
	}
}

// Poll drains whatever the port has buffered and returns the most recent
// valid line. With no new valid line the previous snapshot is returned
// unchanged.
func (s *LineSource) Poll() Snapshot {
	s.drain()

	got := false
	for {
		i := bytes.IndexByte(s.tail, '\n')
		if i < 0 {
			break
		}
		line := s.tail[:i]
		s.tail = s.tail[i+1:]

		snap, err := parseLine(line)
		if err != nil {
			if err != errEmptyLine {
				s.opts.Logger.Warn("discarding distance line", "line", string(line), "error", err)
			}
			continue
		}
		// last writer wins
		s.last = snap
		got = true
	}
	if len(s.tail) > maxPending {
		s.opts.Logger.Warn("distance reader sent no newline, dropping buffered bytes", "bytes", len(s.tail))
		s.tail = nil
	}
	// compact so the backing array does not creep forward forever
	s.tail = append([]byte(nil), s.tail...)

	s.track(got)
	return s.last
}

func (s *LineSource) drain() {
	deadline := s.opts.Clock.Now().Add(s.opts.Drain)
	for {
		n, err := s.port.Read(s.buf)
		if n > 0 {
			s.tail = append(s.tail, s.buf[:n]...)
		}
		if err != nil {
			if !errors.Is(err, serial.ErrTimeout) && !errors.Is(err, io.EOF) {
				s.opts.Logger.Warn("distance read failed", "error", err)
			}
			return
		}
		if n == 0 || !s.opts.Clock.Now().Before(deadline) {
			return
		}
	}
}

func (s *LineSource) track(got bool) {
	if got {
		if s.stale {
			s.opts.Logger.Info("distance reader recovered", "distances_cm", s.last.String())
		}
		s.misses = 0
		s.stale = false
		return
	}
	s.misses++
	if s.opts.StaleAfter > 0 && s.misses == s.opts.StaleAfter {
		s.stale = true
		s.opts.Logger.Warn("no valid distance lines, keeping last values",
			"polls", s.misses, "distances_cm", s.last.String())
	}
}

var errEmptyLine = errors.New("empty line")

// ParseLine parses one "d0,d1,d2,d3" line.
func ParseLine(line string) (Snapshot, error) {
	return parseLine([]byte(line))
}

func parseLine(raw []byte) (Snapshot, error) {
	var snap Snapshot

	if !utf8.Valid(raw) {
		return snap, errors.New("invalid utf-8")
	}
	line := strings.TrimSpace(string(raw))
	if line == "" {
		return snap, errEmptyLine
	}

	parts := strings.Split(line, ",")
	if len(parts) != Channels {
		return snap, fmt.Errorf("want %d values, got %d", Channels, len(parts))
	}
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return snap, fmt.Errorf("channel %d: %w", i, err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return snap, fmt.Errorf("channel %d: not a finite number", i)
		}
		snap[i] = v
	}
	return snap, nil
}
