// internal/motion/sequencer.go
package motion

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"picolink/internal/command"
)

// Sender issues one command to the device.
type Sender interface {
	Send(cmd command.Command) error
}

// maxDrive bounds every emitted drive level so a direction multiplier at the
// ramp extremes can never leave the signed one-byte range.
const maxDrive = 100

const (
	DefaultMaxLevel  = 100
	DefaultStepDelay = 50 * time.Millisecond
)

// Sequencer drives ordered motor-command sequences through a link at a fixed
// cadence.
type Sequencer struct {
	sender    Sender
	logger    *zap.Logger
	maxLevel  int
	stepDelay time.Duration
}

// NewSequencer creates a sequencer. maxLevel is the ramp peak (clamped to
// 100); stepDelay is the inter-command delay.
func NewSequencer(sender Sender, logger *zap.Logger, maxLevel int, stepDelay time.Duration) *Sequencer {
	if maxLevel <= 0 || maxLevel > DefaultMaxLevel {
		maxLevel = DefaultMaxLevel
	}
	if stepDelay <= 0 {
		stepDelay = DefaultStepDelay
	}
	return &Sequencer{
		sender:    sender,
		logger:    logger.With(zap.String("component", "motion")),
		maxLevel:  maxLevel,
		stepDelay: stepDelay,
	}
}

// Plan returns the full ramp sequence for one direction: magnitudes
// ascending 0..max then descending max..0, all four actuators equal, each
// level multiplied by direction and clamped to [-100, 100]. The peak level
// appears twice, once ending the ascent and once starting the descent.
func Plan(direction int8, max int) []command.Motor {
	if max < 0 {
		max = 0
	}
	if max > maxDrive {
		max = maxDrive
	}
	steps := make([]command.Motor, 0, 2*(max+1))
	for i := 0; i <= max; i++ {
		steps = append(steps, step(i, direction))
	}
	for i := max; i >= 0; i-- {
		steps = append(steps, step(i, direction))
	}
	return steps
}

func step(level int, direction int8) command.Motor {
	d := clamp(level * int(direction))
	return command.Motor{A: d, B: d, C: d, D: d}
}

func clamp(v int) int8 {
	if v > maxDrive {
		v = maxDrive
	}
	if v < -maxDrive {
		v = -maxDrive
	}
	return int8(v)
}

// Ramp plays one full ramp in the given direction (+1 forward, -1 reverse),
// waiting the step delay after every send. It blocks until the ramp
// completes; the first send failure aborts the remainder and propagates.
// The device is left at whatever level was last sent successfully.
func (s *Sequencer) Ramp(ctx context.Context, direction int8) error {
	plan := Plan(direction, s.maxLevel)
	s.logger.Info("Starting ramp",
		zap.Int8("direction", direction),
		zap.Int("steps", len(plan)),
	)

	for i, cmd := range plan {
		if err := s.sender.Send(cmd); err != nil {
			return fmt.Errorf("ramp aborted at step %d: %w", i, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.stepDelay):
		}
	}

	s.logger.Info("Ramp completed", zap.Int8("direction", direction))
	return nil
}

// Hold keeps all four actuators at a constant drive level, re-sending at the
// step cadence until the duration elapses.
func (s *Sequencer) Hold(ctx context.Context, drive int8, d time.Duration) error {
	level := clamp(int(drive))
	cmd := command.Motor{A: level, B: level, C: level, D: level}
	deadline := time.Now().Add(d)

	s.logger.Info("Holding drive level",
		zap.Int8("drive", level),
		zap.Duration("duration", d),
	)

	for time.Now().Before(deadline) {
		if err := s.sender.Send(cmd); err != nil {
			return fmt.Errorf("hold aborted: %w", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.stepDelay):
		}
	}
	return nil
}

// Choreography runs the standard demo routine: status LED on, a forward
// ramp, a reverse ramp, all motors stopped, LED off.
func (s *Sequencer) Choreography(ctx context.Context) error {
	if err := s.sender.Send(command.Led{Status: true}); err != nil {
		return fmt.Errorf("led on: %w", err)
	}
	if err := s.Ramp(ctx, 1); err != nil {
		return err
	}
	if err := s.Ramp(ctx, -1); err != nil {
		return err
	}
	if err := s.sender.Send(command.Stop()); err != nil {
		return fmt.Errorf("motor stop: %w", err)
	}
	if err := s.sender.Send(command.Led{Status: false}); err != nil {
		return fmt.Errorf("led off: %w", err)
	}
	return nil
}
