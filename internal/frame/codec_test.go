package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"picolink/internal/command"
)

func allCommands() []command.Command {
	return []command.Command{
		command.ResetToBootloader{},
		command.Motor{},
		command.Motor{A: 5, B: -5, C: 0, D: 127},
		command.Motor{A: -128, B: 127, C: -1, D: 1},
		command.Motor{A: 100, B: 100, C: 100, D: 100},
		command.Led{Status: true},
		command.Led{Status: false},
	}
}

func TestRoundTrip(t *testing.T) {
	for _, cmd := range allCommands() {
		decoded, err := Decode(Encode(cmd))
		require.NoError(t, err, "command %#v", cmd)
		assert.Equal(t, cmd, decoded)
	}
}

func TestDelimiterSafety(t *testing.T) {
	for _, cmd := range allCommands() {
		f := Encode(cmd)
		require.NotEmpty(t, f)
		assert.Equal(t, Delimiter, f[len(f)-1], "frame must end with the delimiter")
		for i, b := range f[:len(f)-1] {
			assert.NotEqual(t, Delimiter, b, "delimiter inside frame %#v at offset %d", cmd, i)
		}
	}
}

func TestEncodeDeterministic(t *testing.T) {
	for _, cmd := range allCommands() {
		assert.Equal(t, Encode(cmd), Encode(cmd))
	}
}

func TestMarshalLayout(t *testing.T) {
	assert.Equal(t, []byte{0x00}, Marshal(command.ResetToBootloader{}))
	assert.Equal(t, []byte{0x01, 0x01, 0x02, 0x03, 0x04}, Marshal(command.Motor{A: 1, B: 2, C: 3, D: 4}))
	assert.Equal(t, []byte{0x01, 0xFF, 0x80, 0x00, 0x64}, Marshal(command.Motor{A: -1, B: -128, C: 0, D: 100}))
	assert.Equal(t, []byte{0x02, 0x01}, Marshal(command.Led{Status: true}))
	assert.Equal(t, []byte{0x02, 0x00}, Marshal(command.Led{Status: false}))
}

func TestEncodeStuffsZeroes(t *testing.T) {
	// An all-stop motor command is the worst case for embedded zeroes.
	f := Encode(command.Motor{})
	assert.Equal(t, []byte{0x02, 0x01, 0x01, 0x01, 0x01, 0x01, 0x00}, f)
}

func TestDecodeScenario(t *testing.T) {
	motor := command.Motor{A: 5, B: -5, C: 0, D: 127}
	decoded, err := Decode(Encode(motor))
	require.NoError(t, err)
	assert.Equal(t, motor, decoded)

	decoded, err = Decode(Encode(command.Led{Status: true}))
	require.NoError(t, err)
	assert.Equal(t, command.Led{Status: true}, decoded)

	decoded, err = Decode(Encode(command.ResetToBootloader{}))
	require.NoError(t, err)
	assert.Equal(t, command.ResetToBootloader{}, decoded)
}

func TestDecodeMalformed(t *testing.T) {
	cases := map[string][]byte{
		"empty":               {},
		"delimiter only":      {0x00},
		"missing delimiter":   {0x02, 0x01},
		"premature delimiter": {0x03, 0x00, 0x01, 0x00},
		"truncated group":     {0x05, 0x01, 0x00},
		"empty body":          {0x01, 0x00},
		"reset with payload":  {0x01, 0x02, 0x07, 0x00},
		"short motor payload": {0x03, 0x01, 0x05, 0x00},
		"bad led status byte": {0x03, 0x02, 0x07, 0x00},
		"led without payload": {0x02, 0x02, 0x00},
		"oversized led":       {0x04, 0x02, 0x01, 0x01, 0x00},
	}

	for name, data := range cases {
		_, err := Decode(data)
		assert.ErrorIs(t, err, ErrMalformed, "case %q", name)
	}
}

func TestDecodeUnknownVariant(t *testing.T) {
	// Discriminant 9 is outside the command set; the stuffing itself is valid.
	_, err := Decode([]byte{0x02, 0x09, 0x00})
	assert.ErrorIs(t, err, ErrUnknownVariant)
}
