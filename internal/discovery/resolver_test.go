package discovery

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial/enumerator"
	"go.uber.org/zap"
)

func newTestResolver(t *testing.T, details []*enumerator.PortDetails, err error) *Resolver {
	t.Helper()
	r := NewResolver("picoplayground", zap.NewNop())
	r.listPorts = func() ([]*enumerator.PortDetails, error) {
		return details, err
	}
	return r
}

func TestEnumerateMapsUSBMetadata(t *testing.T) {
	r := newTestResolver(t, []*enumerator.PortDetails{
		{Name: "/dev/ttyS0"},
		{
			Name:         "/dev/ttyACM0",
			IsUSB:        true,
			VID:          "2e8a",
			PID:          "000a",
			SerialNumber: "picoplayground",
			Product:      "Pico",
		},
	}, nil)

	ports, err := r.Enumerate()
	require.NoError(t, err)
	require.Len(t, ports, 2)

	assert.Equal(t, ClassUnknown, ports[0].Class)
	assert.Empty(t, ports[0].SerialNumber)

	assert.Equal(t, ClassUSB, ports[1].Class)
	assert.Equal(t, "2e8a", ports[1].VID)
	assert.Equal(t, "000a", ports[1].PID)
	assert.Equal(t, "picoplayground", ports[1].SerialNumber)
	assert.Equal(t, "Pico", ports[1].Product)
}

func TestEnumerateFailure(t *testing.T) {
	osErr := errors.New("permission denied")
	r := newTestResolver(t, nil, osErr)

	_, err := r.Enumerate()
	require.Error(t, err)
	assert.ErrorIs(t, err, osErr)
}

func TestResolveExplicitNamePassesThrough(t *testing.T) {
	// No existence check; a bad name fails later at open time.
	r := newTestResolver(t, nil, errors.New("should not be called"))

	path, err := r.Resolve("/dev/ttyUSB7")
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB7", path)
}

func TestResolveMatchesIdentityCaseInsensitively(t *testing.T) {
	r := newTestResolver(t, []*enumerator.PortDetails{
		{Name: "/dev/ttyS0"},
		{Name: "/dev/ttyACM0", IsUSB: true, SerialNumber: "some-other-device"},
		{Name: "/dev/ttyACM1", IsUSB: true, SerialNumber: "PicoPlayground"},
	}, nil)

	path, err := r.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyACM1", path)
}

func TestResolveFirstMatchWins(t *testing.T) {
	r := newTestResolver(t, []*enumerator.PortDetails{
		{Name: "/dev/ttyACM0", IsUSB: true, SerialNumber: "picoplayground"},
		{Name: "/dev/ttyACM1", IsUSB: true, SerialNumber: "picoplayground"},
	}, nil)

	path, err := r.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyACM0", path)
}

func TestResolveNotFound(t *testing.T) {
	r := newTestResolver(t, []*enumerator.PortDetails{
		{Name: "/dev/ttyS0"},
		// Identity token only counts on USB ports.
		{Name: "/dev/ttyS1", SerialNumber: "picoplayground"},
	}, nil)

	_, err := r.Resolve("")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolvePropagatesEnumerationFailure(t *testing.T) {
	osErr := errors.New("udev unavailable")
	r := newTestResolver(t, nil, osErr)

	_, err := r.Resolve("")
	require.Error(t, err)
	assert.ErrorIs(t, err, osErr)
	assert.NotErrorIs(t, err, ErrNotFound)
}
