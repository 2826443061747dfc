package detect

import (
	"math"
	"sort"

	"github.com/user0608/photosheet"
)

// mergeIoUThreshold collapses near-duplicate candidates produced by
// running several configurations over the same region. It is looser
// than the final NMS threshold on purpose: the ensemble proposes the
// same face many times with slightly shifted windows.
const mergeIoUThreshold = 0.2

// MergeCandidates keeps the largest candidate of every overlap cluster.
// Greedy: take the biggest remaining box, drop everything overlapping it
// beyond the threshold, repeat.
func MergeCandidates(cands []Candidate) []Candidate {
	if len(cands) <= 1 {
		return cands
	}
	sorted := make([]Candidate, len(cands))
	copy(sorted, cands)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Box.Area() > sorted[j].Box.Area()
	})

	var kept []Candidate
	removed := make([]bool, len(sorted))
	for i := range sorted {
		if removed[i] {
			continue
		}
		kept = append(kept, sorted[i])
		for j := i + 1; j < len(sorted); j++ {
			if removed[j] {
				continue
			}
			if sorted[i].Box.IoU(sorted[j].Box) > mergeIoUThreshold {
				removed[j] = true
			}
		}
	}
	return kept
}

// ScoreFaces turns merged face candidates into detections with a
// calibrated confidence blended from geometric features. Candidates
// with implausible size or proportions are rejected outright.
func ScoreFaces(cands []Candidate, imgW, imgH int, minConfidence float64) []photosheet.Detection {
	var out []photosheet.Detection
	imageArea := float64(imgW) * float64(imgH)
	if imageArea <= 0 {
		return nil
	}
	for _, c := range cands {
		w, h := c.Box.Width, c.Box.Height
		if w <= 0 || h <= 0 {
			continue
		}
		relArea := float64(w*h) / imageArea
		if relArea < 0.0003 || relArea > 0.2 {
			continue
		}
		if w < 20 || h < 20 {
			continue
		}
		aspect := float64(w) / float64(h)
		if aspect < 0.75 || aspect > 1.4 {
			continue
		}

		sizeConf := clampF(relArea*80, 0.4, 0.95)
		aspectConf := clampF(1.0-math.Abs(aspect-1.0)*1.2, 0.5, 1.0)
		edgeConf := clampF(0.4+0.8*edgeDistance(c.Box, imgW, imgH)/float64(max(w, h)), 0.6, 0.9)

		conf := clampF(sizeConf*0.5+aspectConf*0.35+edgeConf*0.15, 0.3, 0.95)
		if conf < minConfidence {
			continue
		}
		out = append(out, photosheet.Detection{
			Kind:       photosheet.KindFace,
			Confidence: conf,
			Box:        c.Box,
		})
	}
	return out
}

// ScorePersons blends the backend weight with size, aspect and edge
// terms. People vary far more in shape than faces, so the gates are
// wider and the floor is higher: anything below 0.35 is noise.
func ScorePersons(cands []Candidate, imgW, imgH int, minConfidence float64) []photosheet.Detection {
	var out []photosheet.Detection
	imageArea := float64(imgW) * float64(imgH)
	if imageArea <= 0 {
		return nil
	}
	threshold := math.Max(minConfidence, 0.35)
	for _, c := range cands {
		w, h := c.Box.Width, c.Box.Height
		if w <= 0 || h <= 0 {
			continue
		}
		relArea := float64(w*h) / imageArea
		if relArea < 0.0008 || relArea > 0.5 {
			continue
		}
		aspect := float64(h) / float64(w)
		if aspect < 0.8 || aspect > 5.0 {
			continue
		}

		baseConf := clampF((c.Weight+1.5)/3.0, 0.1, 0.9)
		sizeConf := clampF(relArea*35, 0.2, 0.9)
		aspectConf := clampF(aspect/2.5, 0.3, 0.9)
		edgeConf := clampF(edgeDistance(c.Box, imgW, imgH)/float64(max(w, h))+0.3, 0.4, 0.9)

		conf := baseConf*0.5 + sizeConf*0.25 + aspectConf*0.15 + edgeConf*0.1
		if conf < threshold {
			continue
		}
		out = append(out, photosheet.Detection{
			Kind:       photosheet.KindPerson,
			Confidence: conf,
			Box:        c.Box,
		})
	}
	return out
}

func edgeDistance(b photosheet.Box, imgW, imgH int) float64 {
	return float64(min(min(b.X, b.Y), min(imgW-b.Right(), imgH-b.Bottom())))
}
