package hamming

import "fmt"

// StatusKind classifies the decode outcome of a block.
type StatusKind int

// Status kinds.
const (
	StatusOK StatusKind = iota
	StatusCorrected
	StatusUncorrectable
)

// String implements fmt.Stringer.
func (k StatusKind) String() string {
	switch k {
	case StatusOK:
		return "ok"
	case StatusCorrected:
		return "corrected"
	case StatusUncorrectable:
		return "uncorrectable"
	}
	return fmt.Sprintf("StatusKind(%d)", int(k))
}

// BlockStatus is the decode outcome of one block.
// Position is the corrected bit index when Kind is StatusCorrected.
type BlockStatus struct {
	Kind     StatusKind
	Position int
}

// String implements fmt.Stringer.
func (s BlockStatus) String() string {
	if s.Kind == StatusCorrected {
		return fmt.Sprintf("corrected(%d)", s.Position)
	}
	return s.Kind.String()
}

// Stats summarizes a list of block statuses.
type Stats struct {
	OK            int
	Corrected     int
	Uncorrectable int
}

// Summarize counts statuses by kind.
func Summarize(statuses []BlockStatus) (s Stats) {
	for _, st := range statuses {
		switch st.Kind {
		case StatusOK:
			s.OK++
		case StatusCorrected:
			s.Corrected++
		case StatusUncorrectable:
			s.Uncorrectable++
		}
	}
	return
}

// UncorrectableBlocks returns indices of blocks which could not be corrected.
func UncorrectableBlocks(statuses []BlockStatus) []int {
	var indices []int
	for n, st := range statuses {
		if st.Kind == StatusUncorrectable {
			indices = append(indices, n)
		}
	}
	return indices
}
