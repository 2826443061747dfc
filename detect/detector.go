// Package detect implements the detection pipeline: raw detector
// adapters over gocv backends, candidate consolidation, face/person
// consistency reconciliation and global non-maximum suppression.
package detect

import (
	"gocv.io/x/gocv"

	"github.com/user0608/photosheet"
)

// Candidate is a raw rectangle proposed by a detector backend, before
// consolidation and confidence scoring. Weight is backend-specific and
// only meaningful relative to other candidates from the same backend.
type Candidate struct {
	Box    photosheet.Box
	Weight float64
}

// Detector is the capability interface every backend adapter satisfies.
// The consolidator is agnostic to how many or which adapters ran.
type Detector interface {
	Detect(img gocv.Mat) ([]Candidate, error)
	Close() error
}

func clampF(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
