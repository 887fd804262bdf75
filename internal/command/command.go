// internal/command/command.go
package command

// Command is one discrete instruction to the actuator board. The set of
// implementations is closed; exactly one variant is active per instance.
type Command interface {
	isCommand()
}

// ResetToBootloader asks the device to reinitialize into firmware-update mode.
type ResetToBootloader struct{}

// Motor carries four independent signed drive levels, one per actuator.
// Negative is reverse, zero is stop, positive is forward; the magnitude is
// the drive intensity.
type Motor struct {
	A, B, C, D int8
}

// Led switches the status indicator on or off.
type Led struct {
	Status bool
}

func (ResetToBootloader) isCommand() {}
func (Motor) isCommand()             {}
func (Led) isCommand()               {}

// Stop is the all-actuators-off command.
func Stop() Motor {
	return Motor{}
}
