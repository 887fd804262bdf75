// internal/frame/codec.go
package frame

import (
	"errors"
	"fmt"

	"picolink/internal/command"
)

// Delimiter terminates every frame. COBS stuffing guarantees it cannot
// appear anywhere else inside a well-formed frame.
const Delimiter byte = 0x00

// Wire discriminants. These are part of the wire format shared with the
// device firmware and must never be renumbered.
const (
	discReset byte = 0
	discMotor byte = 1
	discLed   byte = 2
)

var (
	// ErrMalformed reports inconsistent byte stuffing or a payload whose
	// length does not match its discriminant.
	ErrMalformed = errors.New("malformed frame")

	// ErrUnknownVariant reports a discriminant outside the known command set.
	ErrUnknownVariant = errors.New("unknown command variant")
)

// Encode serializes a command and wraps it in a self-delimiting frame:
// discriminant byte, payload fields in declared order, COBS stuffing, then
// the delimiter. Encoding is deterministic and cannot fail for any command
// variant.
func Encode(cmd command.Command) []byte {
	return stuff(Marshal(cmd))
}

// Decode is the exact inverse of Encode. The input must be one complete
// frame including its trailing delimiter.
func Decode(data []byte) (command.Command, error) {
	body, err := unstuff(data)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrMalformed)
	}
	switch body[0] {
	case discReset:
		if len(body) != 1 {
			return nil, fmt.Errorf("%w: reset command with payload", ErrMalformed)
		}
		return command.ResetToBootloader{}, nil
	case discMotor:
		if len(body) != 5 {
			return nil, fmt.Errorf("%w: motor payload is %d bytes, want 4", ErrMalformed, len(body)-1)
		}
		return command.Motor{
			A: int8(body[1]),
			B: int8(body[2]),
			C: int8(body[3]),
			D: int8(body[4]),
		}, nil
	case discLed:
		if len(body) != 2 {
			return nil, fmt.Errorf("%w: led payload is %d bytes, want 1", ErrMalformed, len(body)-1)
		}
		switch body[1] {
		case 0:
			return command.Led{Status: false}, nil
		case 1:
			return command.Led{Status: true}, nil
		default:
			return nil, fmt.Errorf("%w: led status byte 0x%02x", ErrMalformed, body[1])
		}
	default:
		return nil, fmt.Errorf("%w: discriminant 0x%02x", ErrUnknownVariant, body[0])
	}
}

// Marshal produces the unstuffed binary representation of a command:
// one discriminant byte followed by fixed-width payload fields, no padding.
func Marshal(cmd command.Command) []byte {
	switch c := cmd.(type) {
	case command.ResetToBootloader:
		return []byte{discReset}
	case command.Motor:
		return []byte{discMotor, byte(c.A), byte(c.B), byte(c.C), byte(c.D)}
	case command.Led:
		status := byte(0)
		if c.Status {
			status = 1
		}
		return []byte{discLed, status}
	default:
		// The command set is sealed; a new variant must be added here.
		panic(fmt.Sprintf("frame: unhandled command type %T", cmd))
	}
}

// stuff applies COBS encoding to body and appends the delimiter. Each group
// starts with a code byte giving the offset to the next stuffed zero; a code
// of 0xFF marks a maximal group with no implied zero.
func stuff(body []byte) []byte {
	out := make([]byte, 0, len(body)+2+len(body)/254)
	codeIdx := len(out)
	out = append(out, 0)
	code := byte(1)
	for _, b := range body {
		if b == Delimiter {
			out[codeIdx] = code
			codeIdx = len(out)
			out = append(out, 0)
			code = 1
			continue
		}
		out = append(out, b)
		code++
		if code == 0xFF {
			out[codeIdx] = code
			codeIdx = len(out)
			out = append(out, 0)
			code = 1
		}
	}
	out[codeIdx] = code
	out = append(out, Delimiter)
	return out
}

// unstuff reverses stuff. It rejects frames where the delimiter appears
// before the final byte or where a group runs past the end of the data.
func unstuff(data []byte) ([]byte, error) {
	if len(data) < 2 {
		return nil, fmt.Errorf("%w: frame too short", ErrMalformed)
	}
	if data[len(data)-1] != Delimiter {
		return nil, fmt.Errorf("%w: missing delimiter", ErrMalformed)
	}
	stuffed := data[: len(data)-1 : len(data)-1]
	out := make([]byte, 0, len(stuffed))
	i := 0
	for i < len(stuffed) {
		code := stuffed[i]
		if code == 0 {
			return nil, fmt.Errorf("%w: premature delimiter at offset %d", ErrMalformed, i)
		}
		i++
		end := i + int(code) - 1
		if end > len(stuffed) {
			return nil, fmt.Errorf("%w: truncated group", ErrMalformed)
		}
		for ; i < end; i++ {
			if stuffed[i] == 0 {
				return nil, fmt.Errorf("%w: premature delimiter at offset %d", ErrMalformed, i)
			}
			out = append(out, stuffed[i])
		}
		if code != 0xFF && i < len(stuffed) {
			out = append(out, 0)
		}
	}
	return out, nil
}
