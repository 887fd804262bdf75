// internal/link/session.go
package link

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.bug.st/serial"
	"go.uber.org/zap"

	"picolink/internal/command"
	"picolink/internal/frame"
)

// Port is the subset of the serial transport a session needs. The concrete
// implementation is full duplex: concurrent Read and Write from different
// goroutines are safe without mutual exclusion.
type Port interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
}

// Config holds the transport parameters for one session.
type Config struct {
	BaudRate    int
	DataBits    int
	StopBits    int
	Parity      string
	ReadTimeout time.Duration
}

// Observer receives inbound device text. The device's diagnostic output is
// not protocol-framed, so it is surfaced verbatim.
type Observer func(text string)

// Session owns the one live duplex connection to the device. It has exactly
// one writer (the caller of Send) and one background drain goroutine reading
// unsolicited device output for the session's lifetime.
type Session struct {
	id      string
	port    Port
	logger  *zap.Logger
	observe Observer

	closing    atomic.Bool
	closeOnce  sync.Once
	closeErr   error
	readerDone chan struct{}
}

// Option customizes a session before its drain goroutine starts.
type Option func(*Session)

// WithObserver routes inbound device text to fn instead of stdout.
func WithObserver(fn Observer) Option {
	return func(s *Session) { s.observe = fn }
}

// Open opens the named endpoint and starts the background drain. Open
// failures (device missing, busy, permission denied) are fatal to the
// caller; there is no retry.
func Open(path string, cfg *Config, logger *zap.Logger, opts ...Option) (*Session, error) {
	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: cfg.DataBits,
		Parity:   parity(cfg.Parity),
		StopBits: stopBits(cfg.StopBits),
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("opening serial port %s: %w", path, err)
	}

	// A bounded read timeout keeps the drain goroutine from blocking
	// indefinitely when the device is quiet.
	if err := port.SetReadTimeout(cfg.ReadTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("setting read timeout: %w", err)
	}

	s := newSession(port, logger, opts...)
	s.logger.Info("Serial port opened",
		zap.String("port", path),
		zap.Int("baud_rate", cfg.BaudRate),
	)
	return s, nil
}

// newSession wires a session around an already-open port and starts its
// drain goroutine.
func newSession(port Port, logger *zap.Logger, opts ...Option) *Session {
	s := &Session{
		id:         uuid.New().String(),
		port:       port,
		logger:     logger.With(zap.String("component", "link")),
		observe:    func(text string) { fmt.Print(text) },
		readerDone: make(chan struct{}),
	}
	s.logger = s.logger.With(zap.String("session_id", s.id))
	for _, opt := range opts {
		opt(s)
	}
	go s.drain()
	return s
}

// Send encodes the command and writes the whole frame in a single write
// call. The serial stream delivers bytes in order, so successive sends
// arrive at the device in issue order. No ordering holds between a send and
// interleaved inbound text; the link carries no acknowledgements.
func (s *Session) Send(cmd command.Command) error {
	f := frame.Encode(cmd)
	n, err := s.port.Write(f)
	if err != nil {
		return fmt.Errorf("writing frame: %w", err)
	}
	if n != len(f) {
		return fmt.Errorf("short write: %d of %d bytes", n, len(f))
	}
	s.logger.Debug("Frame sent", zap.Binary("frame", f))
	return nil
}

// Close releases the port. Closing forces the pending read to fail, which
// ends the drain goroutine; Close waits for it so no goroutine outlives the
// session. Safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closing.Store(true)
		s.closeErr = s.port.Close()
		<-s.readerDone
		if s.closeErr != nil {
			s.logger.Error("Failed to close serial port", zap.Error(s.closeErr))
		} else {
			s.logger.Info("Session closed")
		}
	})
	return s.closeErr
}

// drain continuously reads unsolicited device output. A zero-byte read means
// the read timeout elapsed with nothing available and is not an error. Any
// other read failure stops only this goroutine; the writer side keeps its
// ability to send.
func (s *Session) drain() {
	defer close(s.readerDone)
	buf := make([]byte, 512)
	for {
		n, err := s.port.Read(buf)
		if n > 0 {
			s.observe(string(buf[:n]))
		}
		if err != nil {
			if s.closing.Load() {
				return
			}
			s.logger.Error("Serial read failed, stopping drain", zap.Error(err))
			return
		}
	}
}

func parity(name string) serial.Parity {
	switch name {
	case "odd":
		return serial.OddParity
	case "even":
		return serial.EvenParity
	default:
		return serial.NoParity
	}
}

func stopBits(n int) serial.StopBits {
	if n == 2 {
		return serial.TwoStopBits
	}
	return serial.OneStopBit
}
