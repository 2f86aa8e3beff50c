// Package hamming implements an extended Hamming (SECDED) block code.
//
// Block layout for a block of size n (power of two, n >= 8):
//
//	index 0          extended (overall) parity
//	index 2^k        row parity over data indices with bit k set
//	other index >= 3 data, filled in ascending order
//
// Each block corrects one flipped bit and detects two.
package hamming

import (
	"errors"
	"fmt"

	"github.com/robotalks/thermo.go/pkg/bits"
)

var (
	// ErrInvalidBlockSize indicates the block size is not a power of two >= 8.
	ErrInvalidBlockSize = errors.New("block size must be a power of two >= 8")
	// ErrPartialBlock indicates the encoded length is not a multiple of the block size.
	ErrPartialBlock = errors.New("encoded length is not a multiple of block size")
)

// BufferTooSmallError is returned when the encoded output does not fit the
// destination supplied by the caller.
type BufferTooSmallError struct {
	Need     int
	Capacity int
}

// Error implements error.
func (e *BufferTooSmallError) Error() string {
	return fmt.Sprintf("buffer too small: need %d bits, capacity %d", e.Need, e.Capacity)
}

// Codec encodes and decodes blocks of a fixed size.
type Codec struct {
	blockSize  int
	parityBits int
	dataSlots  []int
}

// NewCodec creates a Codec for blockSize.
func NewCodec(blockSize int) (*Codec, error) {
	if blockSize < 8 || blockSize&(blockSize-1) != 0 {
		return nil, ErrInvalidBlockSize
	}
	c := &Codec{blockSize: blockSize}
	for n := blockSize; n > 1; n >>= 1 {
		c.parityBits++
	}
	c.dataSlots = make([]int, 0, blockSize-c.parityBits-1)
	for i := 3; i < blockSize; i++ {
		if i&(i-1) != 0 {
			c.dataSlots = append(c.dataSlots, i)
		}
	}
	return c, nil
}

// MustNewCodec is NewCodec which panics on error.
func MustNewCodec(blockSize int) *Codec {
	c, err := NewCodec(blockSize)
	if err != nil {
		panic(err)
	}
	return c
}

// BlockSize returns the number of bits per block.
func (c *Codec) BlockSize() int {
	return c.blockSize
}

// ParityBits returns the number of row parity bits per block.
func (c *Codec) ParityBits() int {
	return c.parityBits
}

// DataCapacity returns the number of data bits per block.
func (c *Codec) DataCapacity() int {
	return len(c.dataSlots)
}

// Blocks returns the number of blocks needed for n data bits.
func (c *Codec) Blocks(n int) int {
	capacity := len(c.dataSlots)
	return (n + capacity - 1) / capacity
}

// EncodedLen returns the encoded length of n data bits.
func (c *Codec) EncodedLen(n int) int {
	return c.Blocks(n) * c.blockSize
}

// Encode encodes data into a newly allocated sequence.
func (c *Codec) Encode(data bits.Sequence) bits.Sequence {
	out := make(bits.Sequence, c.EncodedLen(len(data)))
	c.encode(out, data)
	return out
}

// EncodeTo encodes data into dst and returns the number of bits written.
// It fails without touching dst when the result does not fit.
func (c *Codec) EncodeTo(dst []byte, data bits.Sequence) (int, error) {
	n := c.EncodedLen(len(data))
	if n > len(dst) {
		return 0, &BufferTooSmallError{Need: n, Capacity: len(dst)}
	}
	c.encode(dst[:n], data)
	return n, nil
}

func (c *Codec) encode(out []byte, data bits.Sequence) {
	capacity := len(c.dataSlots)
	for blk := 0; blk*c.blockSize < len(out); blk++ {
		block := out[blk*c.blockSize : (blk+1)*c.blockSize]
		for i := range block {
			block[i] = 0
		}
		src := data[blk*capacity:]
		if len(src) > capacity {
			src = src[:capacity]
		}
		var syndrome int
		for n, b := range src {
			if b&1 != 0 {
				block[c.dataSlots[n]] = 1
				syndrome ^= c.dataSlots[n]
			}
		}
		// The XOR of indices of set data bits has bit k set exactly when
		// the row parity at 2^k must be 1.
		for k := 0; k < c.parityBits; k++ {
			block[1<<uint(k)] = byte(syndrome>>uint(k)) & 1
		}
		var overall byte
		for _, b := range block[1:] {
			overall ^= b
		}
		block[0] = overall
	}
}

// Decode decodes an encoded sequence. Single bit errors are corrected in the
// returned data, uncorrectable blocks are reported through their status and
// decoded as received.
func (c *Codec) Decode(encoded bits.Sequence) (bits.Sequence, []BlockStatus, error) {
	if len(encoded)%c.blockSize != 0 {
		return nil, nil, ErrPartialBlock
	}
	numBlocks := len(encoded) / c.blockSize
	data := make(bits.Sequence, 0, numBlocks*len(c.dataSlots))
	statuses := make([]BlockStatus, numBlocks)
	block := make([]byte, c.blockSize)
	for blk := 0; blk < numBlocks; blk++ {
		copy(block, encoded[blk*c.blockSize:(blk+1)*c.blockSize])
		status := c.check(block)
		if status.Kind == StatusCorrected {
			block[status.Position] ^= 1
		}
		statuses[blk] = status
		for _, slot := range c.dataSlots {
			data = append(data, block[slot]&1)
		}
	}
	return data, statuses, nil
}

// check computes the syndrome and overall parity of a received block.
func (c *Codec) check(block []byte) BlockStatus {
	var syndrome int
	var overall byte
	for i, b := range block {
		if b&1 != 0 {
			syndrome ^= i
			overall ^= 1
		}
	}
	switch {
	case syndrome == 0 && overall == 0:
		return BlockStatus{Kind: StatusOK}
	case overall != 0:
		// Odd number of flips: a single error at the syndrome position,
		// syndrome 0 meaning the extended parity bit itself.
		return BlockStatus{Kind: StatusCorrected, Position: syndrome}
	default:
		return BlockStatus{Kind: StatusUncorrectable}
	}
}
