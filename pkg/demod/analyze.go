package demod

import (
	"fmt"
	"time"

	"github.com/golang/glog"

	"github.com/robotalks/thermo.go/pkg/bits"
	"github.com/robotalks/thermo.go/pkg/hamming"
)

// Params describes how the log was recorded.
type Params struct {
	BitTime        time.Duration
	SampleInterval time.Duration
	FEC            bool
	BlockSize      int
	// Framed strips the length header after decoding.
	Framed bool
	// Tolerance in degrees, zero means BitTime in ms / 10000.
	Tolerance float64
}

// SamplesPerBit is the demodulation window.
func (p *Params) SamplesPerBit() int {
	if p.SampleInterval <= 0 {
		return 0
	}
	return int(p.BitTime / p.SampleInterval)
}

func (p *Params) tolerance() float64 {
	if p.Tolerance > 0 {
		return p.Tolerance
	}
	return float64(p.BitTime/time.Millisecond) / 10000
}

// Metrics are the figures of one analyzed transmission.
type Metrics struct {
	// BitRate in bits per second.
	BitRate float64
	// TotalErrors counts received bits differing from what was sent.
	TotalErrors int
	ErrorRate   float64
	// CorrectedErrors counts blocks fixed by the codec.
	CorrectedErrors int
	CorrectionRate  float64
	// MeaningfulErrors counts payload bits still wrong after decoding.
	MeaningfulErrors int
	// Throughput in correct payload bits per second.
	Throughput   float64
	TransferTime time.Duration
	// Accuracy in percent of payload bits.
	Accuracy float64
}

// Result is the outcome of Analyze.
type Result struct {
	Raw      bits.Sequence
	Message  bits.Sequence
	Readable string
	// Statuses of decoded blocks, with FEC only.
	Statuses []hamming.BlockStatus
	Metrics  Metrics
}

// Decode runs raw through the codec, a trailing partial block is padded
// with zeros.
func Decode(raw bits.Sequence, blockSize int) (bits.Sequence, []hamming.BlockStatus, error) {
	codec, err := hamming.NewCodec(blockSize)
	if err != nil {
		return nil, nil, err
	}
	if rem := len(raw) % blockSize; rem != 0 {
		padded := make(bits.Sequence, len(raw)+blockSize-rem)
		copy(padded, raw)
		raw = padded
	}
	return codec.Decode(raw)
}

// Analyze demodulates temps and compares the result with truth, the
// payload bits which were sent before framing and encoding.
func Analyze(temps []float64, params Params, truth bits.Sequence) (*Result, error) {
	raw, err := Demodulate(temps, params.SamplesPerBit(), params.tolerance())
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("no bits demodulated from %d samples", len(temps))
	}
	if len(truth) == 0 {
		return nil, fmt.Errorf("empty truth")
	}
	sent := truth
	if params.Framed {
		if sent, err = bits.Frame(truth); err != nil {
			return nil, err
		}
	}

	r := &Result{Raw: raw, Message: raw}
	m := &r.Metrics
	m.TransferTime = time.Duration(len(raw)) * params.BitTime
	if secs := m.TransferTime.Seconds(); secs > 0 {
		m.BitRate = float64(len(raw)) / secs
	}

	if params.FEC {
		codec, err := hamming.NewCodec(params.BlockSize)
		if err != nil {
			return nil, err
		}
		if r.Message, r.Statuses, err = Decode(raw, params.BlockSize); err != nil {
			return nil, err
		}
		m.CorrectedErrors = hamming.Summarize(r.Statuses).Corrected
		m.CorrectionRate = float64(m.CorrectedErrors) / float64(len(raw))
		m.TotalErrors = len(Compare(raw, codec.Encode(sent)))
		if uncorrectable := hamming.UncorrectableBlocks(r.Statuses); len(uncorrectable) > 0 {
			glog.Warningf("uncorrectable blocks: %v", uncorrectable)
		}
	} else {
		m.TotalErrors = len(Compare(raw, sent))
	}
	m.ErrorRate = float64(m.TotalErrors) / float64(len(raw))

	if params.Framed {
		if payload, err := bits.Unframe(r.Message); err == nil {
			r.Message = payload
		} else {
			glog.Warningf("unframe: %v", err)
			if len(r.Message) >= bits.HeaderBits {
				r.Message = r.Message[bits.HeaderBits:]
			}
		}
	}

	msg := r.Message
	if len(msg) > len(truth) {
		msg = msg[:len(truth)]
	}
	m.MeaningfulErrors = len(Compare(msg, truth))
	if secs := m.TransferTime.Seconds(); secs > 0 {
		m.Throughput = float64(len(r.Message)-m.MeaningfulErrors) / secs
	}
	m.Accuracy = float64(len(msg)-m.MeaningfulErrors) / float64(len(truth)) * 100
	r.Readable = Readable(msg)
	glog.V(2).Infof("raw %s message %s", raw, r.Message)
	return r, nil
}
