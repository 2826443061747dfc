package detect

import (
	"sort"

	"github.com/user0608/photosheet"
)

// nmsIoUThreshold is the overlap above which two same-kind detections
// are considered the same object.
const nmsIoUThreshold = 0.25

// Suppress applies greedy non-maximum suppression independently per
// detection kind. Equal confidence ties keep the original order.
func Suppress(dets []photosheet.Detection) []photosheet.Detection {
	if len(dets) <= 1 {
		return dets
	}
	faces := suppressKind(photosheet.ByKind(dets, photosheet.KindFace))
	persons := suppressKind(photosheet.ByKind(dets, photosheet.KindPerson))
	return append(faces, persons...)
}

func suppressKind(dets []photosheet.Detection) []photosheet.Detection {
	if len(dets) <= 1 {
		return dets
	}
	sorted := make([]photosheet.Detection, len(dets))
	copy(sorted, dets)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})

	suppressed := make([]bool, len(sorted))
	kept := make([]photosheet.Detection, 0, len(sorted))
	for i := range sorted {
		if suppressed[i] {
			continue
		}
		kept = append(kept, sorted[i])
		for j := i + 1; j < len(sorted); j++ {
			if suppressed[j] {
				continue
			}
			if sorted[i].Box.IoU(sorted[j].Box) > nmsIoUThreshold {
				suppressed[j] = true
			}
		}
	}
	return kept
}
