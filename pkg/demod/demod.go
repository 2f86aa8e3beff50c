// Package demod recovers bits from a temperature log and measures how
// well a transmission went.
package demod

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/robotalks/thermo.go/pkg/bits"
)

var (
	// ErrInvalidWindow indicates samples per bit is not positive.
	ErrInvalidWindow = errors.New("samples per bit must be positive")
	// ErrNoRuns indicates nothing to merge.
	ErrNoRuns = errors.New("no runs to merge")
	// ErrLengthMismatch indicates merged runs differ in length.
	ErrLengthMismatch = errors.New("runs differ in length")
)

// ReadLog reads one temperature per line, blank lines are skipped.
func ReadLog(r io.Reader) ([]float64, error) {
	var temps []float64
	scanner := bufio.NewScanner(r)
	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		val, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return temps, fmt.Errorf("line %d: %v", line, err)
		}
		temps = append(temps, val)
	}
	return temps, scanner.Err()
}

// Demodulate averages every window of samplesPerBit readings. The first
// window is 0. A window within tolerance of the previous average repeats
// the previous bit, otherwise a warmer window is 1 and a cooler one is 0.
// A trailing partial window is averaged over what it has.
func Demodulate(temps []float64, samplesPerBit int, tolerance float64) (bits.Sequence, error) {
	if samplesPerBit <= 0 {
		return nil, ErrInvalidWindow
	}
	seq := make(bits.Sequence, 0, (len(temps)+samplesPerBit-1)/samplesPerBit)
	var prevAvg float64
	var prev byte
	for i := 0; i < len(temps); i += samplesPerBit {
		end := i + samplesPerBit
		if end > len(temps) {
			end = len(temps)
		}
		var sum float64
		for _, t := range temps[i:end] {
			sum += t
		}
		avg := sum / float64(end-i)
		var bit byte
		switch {
		case i == 0:
		case avg <= prevAvg+tolerance && avg >= prevAvg-tolerance:
			bit = prev
		case avg > prevAvg:
			bit = 1
		}
		seq = append(seq, bit)
		prevAvg, prev = avg, bit
	}
	return seq, nil
}

// Compare returns the positions where a and b differ, over the length
// of the shorter one.
func Compare(a, b bits.Sequence) []int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var diff []int
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			diff = append(diff, i)
		}
	}
	return diff
}

// MergeMajority merges runs of the same transmission by majority vote,
// a tie is 0.
func MergeMajority(runs []bits.Sequence) (bits.Sequence, error) {
	if len(runs) == 0 {
		return nil, ErrNoRuns
	}
	merged := make(bits.Sequence, len(runs[0]))
	for _, run := range runs[1:] {
		if len(run) != len(merged) {
			return nil, ErrLengthMismatch
		}
	}
	for i := range merged {
		var ones int
		for _, run := range runs {
			if run[i] != 0 {
				ones++
			}
		}
		if ones > len(runs)/2 {
			merged[i] = 1
		}
	}
	return merged, nil
}

// Readable packs seq into bytes, everything other than ASCII letters and
// digits shows as '*'.
func Readable(seq bits.Sequence) string {
	packed := seq.Pack()
	for i, b := range packed {
		if !(b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9') {
			packed[i] = '*'
		}
	}
	return string(packed)
}
