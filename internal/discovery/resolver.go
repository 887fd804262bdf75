// internal/discovery/resolver.go
package discovery

import (
	"errors"
	"fmt"
	"strings"

	"go.bug.st/serial/enumerator"
	"go.uber.org/zap"
)

// PortClass is the kind of endpoint the host OS reported.
type PortClass int

const (
	ClassUnknown PortClass = iota
	ClassUSB
)

func (c PortClass) String() string {
	switch c {
	case ClassUSB:
		return "USB"
	default:
		return "Unknown"
	}
}

// PortDescriptor is the identity of one enumerated serial endpoint. USB
// metadata fields are populated only when Class is ClassUSB. Descriptors are
// rebuilt on every enumeration and must not be cached across calls; devices
// attach and detach between them.
type PortDescriptor struct {
	Name         string
	Class        PortClass
	VID          string
	PID          string
	SerialNumber string
	Product      string
}

// ErrNotFound reports that no enumerated port carries the expected device
// identity.
var ErrNotFound = errors.New("no matching device")

// Resolver finds the control-link device among the host's serial ports by
// matching its USB serial-number string.
type Resolver struct {
	identity string
	logger   *zap.Logger

	// listPorts is swapped out by tests; production always queries the OS.
	listPorts func() ([]*enumerator.PortDetails, error)
}

// NewResolver creates a resolver that matches ports against the given
// identity token, case-insensitively.
func NewResolver(identity string, logger *zap.Logger) *Resolver {
	return &Resolver{
		identity:  identity,
		logger:    logger.With(zap.String("component", "discovery")),
		listPorts: enumerator.GetDetailedPortsList,
	}
}

// Enumerate queries the OS for every serial endpoint it currently reports.
// The result is a fresh, finite snapshot; ordering is OS-defined and not
// stable across calls.
func (r *Resolver) Enumerate() ([]PortDescriptor, error) {
	details, err := r.listPorts()
	if err != nil {
		return nil, fmt.Errorf("enumerating serial ports: %w", err)
	}

	ports := make([]PortDescriptor, 0, len(details))
	for _, d := range details {
		desc := PortDescriptor{Name: d.Name}
		if d.IsUSB {
			desc.Class = ClassUSB
			desc.VID = d.VID
			desc.PID = d.PID
			desc.SerialNumber = d.SerialNumber
			desc.Product = d.Product
		}
		ports = append(ports, desc)
	}

	r.logger.Debug("Enumerated serial ports", zap.Int("count", len(ports)))
	return ports, nil
}

// Resolve returns the device path to open. An explicit name is returned
// unchanged with no existence check; a missing device then surfaces at open
// time. With no explicit name, the first enumerated USB port whose serial
// number equals the identity token wins.
func (r *Resolver) Resolve(explicit string) (string, error) {
	if explicit != "" {
		r.logger.Debug("Using explicit port", zap.String("port", explicit))
		return explicit, nil
	}

	ports, err := r.Enumerate()
	if err != nil {
		return "", err
	}

	for _, p := range ports {
		if p.Class != ClassUSB {
			continue
		}
		if strings.EqualFold(p.SerialNumber, r.identity) {
			r.logger.Info("Matched device",
				zap.String("port", p.Name),
				zap.String("vid", p.VID),
				zap.String("pid", p.PID),
				zap.String("serial_number", p.SerialNumber),
			)
			return p.Name, nil
		}
	}

	return "", fmt.Errorf("%w: no USB port with serial number %q", ErrNotFound, r.identity)
}
