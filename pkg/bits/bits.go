// Package bits provides the canonical bit representation of messages.
//
// A Sequence stores one bit per byte (values 0 or 1) so that the codec and
// the modulation plan can index bits directly.
package bits

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidInput indicates an absent (nil) message.
	ErrInvalidInput = errors.New("invalid input: message is nil")
	// ErrFrameTooLong indicates the message is too long for the length header.
	ErrFrameTooLong = errors.New("message too long for length header")
	// ErrFrameTruncated indicates the framed sequence is shorter than its header claims.
	ErrFrameTruncated = errors.New("framed sequence truncated")
)

// InvalidBitError reports a value which is neither 0 nor 1.
type InvalidBitError struct {
	Index int
	Value byte
}

// Error implements error.
func (e *InvalidBitError) Error() string {
	return fmt.Sprintf("invalid bit at %d: %q", e.Index, e.Value)
}

// Sequence is an ordered sequence of bits.
type Sequence []byte

// Expand turns a message into bits, most-significant bit first.
func Expand(message []byte) (Sequence, error) {
	if message == nil {
		return nil, ErrInvalidInput
	}
	seq := make(Sequence, 0, len(message)*8)
	for _, b := range message {
		for i := 7; i >= 0; i-- {
			seq = append(seq, (b>>uint(i))&1)
		}
	}
	return seq, nil
}

// Parse parses a string of '0' and '1' characters.
func Parse(s string) (Sequence, error) {
	seq := make(Sequence, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '0':
		case '1':
			seq[i] = 1
		default:
			return nil, &InvalidBitError{Index: i, Value: s[i]}
		}
	}
	return seq, nil
}

// Validate checks every element is 0 or 1.
func (s Sequence) Validate() error {
	for i, b := range s {
		if b > 1 {
			return &InvalidBitError{Index: i, Value: b}
		}
	}
	return nil
}

// String renders the sequence as '0'/'1' characters.
func (s Sequence) String() string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, b := range s {
		if b != 0 {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

// Pack converts bits back to bytes, MSB first.
// A trailing partial byte is padded with zeros.
func (s Sequence) Pack() []byte {
	out := make([]byte, (len(s)+7)/8)
	for i, b := range s {
		if b != 0 {
			out[i/8] |= 0x80 >> uint(i%8)
		}
	}
	return out
}

// Ones counts bits set to 1.
func (s Sequence) Ones() (n int) {
	for _, b := range s {
		if b != 0 {
			n++
		}
	}
	return
}

// HeaderBits is the size of the length header added by Frame.
const HeaderBits = 16

// Frame prepends a 16-bit big-endian count of payload bits so the receiver
// can strip block padding after decoding.
func Frame(payload Sequence) (Sequence, error) {
	if len(payload) >= 1<<HeaderBits {
		return nil, ErrFrameTooLong
	}
	n := len(payload)
	framed := make(Sequence, HeaderBits, HeaderBits+n)
	for i := 0; i < HeaderBits; i++ {
		framed[i] = byte(n>>uint(HeaderBits-1-i)) & 1
	}
	return append(framed, payload...), nil
}

// Unframe reads the length header and returns exactly the payload bits,
// dropping anything after them (e.g. codec padding).
func Unframe(framed Sequence) (Sequence, error) {
	if len(framed) < HeaderBits {
		return nil, ErrFrameTruncated
	}
	var n int
	for _, b := range framed[:HeaderBits] {
		n = n<<1 | int(b&1)
	}
	if len(framed)-HeaderBits < n {
		return nil, ErrFrameTruncated
	}
	return framed[HeaderBits : HeaderBits+n], nil
}
