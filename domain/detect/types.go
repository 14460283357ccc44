package detect

import (
	"fmt"
	"image"
	"strings"
)

// ROIStatus tags the lifecycle stage of the region of interest.
type ROIStatus int

const (
	ROIUnknown ROIStatus = iota
	ROITentative
	ROIConfirmed
)

func (s ROIStatus) String() string {
	switch s {
	case ROIUnknown:
		return "unknown"
	case ROITentative:
		return "tentative"
	case ROIConfirmed:
		return "confirmed"
	default:
		return fmt.Sprintf("ROIStatus(%d)", int(s))
	}
}

// ROI is the area of the frame believed to hold the key prompt. Rect is only
// meaningful when Status is not ROIUnknown.
type ROI struct {
	Status ROIStatus
	Rect   image.Rectangle
}

// Known reports whether a rectangle is set.
func (r ROI) Known() bool { return r.Status != ROIUnknown }

// Detection is a single template match.
type Detection struct {
	Symbol     string
	Rect       image.Rectangle
	Confidence float64
	Scale      float64
}

// Sequence is the left-to-right list of recognised symbols.
type Sequence []string

// Key returns the symbols joined by single spaces; equal sequences share a key.
func (s Sequence) Key() string { return strings.Join(s, " ") }

// Equal compares two sequences by value.
func (s Sequence) Equal(o Sequence) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if s[i] != o[i] {
			return false
		}
	}
	return true
}

func (s Sequence) String() string { return s.Key() }
