package bits

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExpand(t *testing.T) {
	testCases := []struct {
		name   string
		msg    []byte
		expect string
	}{
		{"empty", []byte{}, ""},
		{"single", []byte{0x80}, "10000000"},
		{"hola", []byte("hola"), "01101000011011110110110001100001"},
		{"all ones", []byte{0xff, 0x01}, "1111111100000001"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			seq, err := Expand(tc.msg)
			require.NoError(t, err)
			require.NotNil(t, seq)
			require.Len(t, seq, 8*len(tc.msg))
			require.Equal(t, tc.expect, seq.String())
			require.Equal(t, tc.msg, seq.Pack())
		})
	}
}

func TestExpandNil(t *testing.T) {
	_, err := Expand(nil)
	require.Equal(t, ErrInvalidInput, err)
}

func TestParse(t *testing.T) {
	seq, err := Parse("0110")
	require.NoError(t, err)
	require.Equal(t, Sequence{0, 1, 1, 0}, seq)
	require.NoError(t, seq.Validate())
	require.Equal(t, 2, seq.Ones())

	_, err = Parse("01x0")
	require.IsType(t, &InvalidBitError{}, err)
	require.Equal(t, 2, err.(*InvalidBitError).Index)

	require.IsType(t, &InvalidBitError{}, Sequence{0, 1, 2}.Validate())
}

func TestPackPartialByte(t *testing.T) {
	require.Equal(t, []byte{0xa0}, Sequence{1, 0, 1}.Pack())
	require.Empty(t, Sequence{}.Pack())
}

func TestFrame(t *testing.T) {
	payload, err := Expand([]byte("hi"))
	require.NoError(t, err)
	framed, err := Frame(payload)
	require.NoError(t, err)
	require.Len(t, framed, HeaderBits+16)
	require.Equal(t, "0000000000010000", framed[:HeaderBits].String())

	padded := append(append(Sequence{}, framed...), 0, 0, 0)
	got, err := Unframe(padded)
	require.NoError(t, err)
	require.Equal(t, payload, got)

	_, err = Unframe(framed[:10])
	require.Equal(t, ErrFrameTruncated, err)
	_, err = Unframe(framed[:HeaderBits+3])
	require.Equal(t, ErrFrameTruncated, err)

	_, err = Frame(make(Sequence, 1<<HeaderBits))
	require.Equal(t, ErrFrameTooLong, err)
}
