package detect

import (
	"log/slog"
	"sort"

	"github.com/user0608/photosheet"
)

// RegionSearch looks for a person body inside the given image region
// with permissive parameters. A false return means nothing was found;
// failures inside the searcher are reported the same way.
type RegionSearch func(region photosheet.Box) (photosheet.Box, bool)

// Confidence assigned to bodies found by the targeted secondary search.
// Deliberately conservative: these detections exist to restore the
// face/person balance, not to assert a strong person detection.
const recoveredBodyConfidence = 0.4

// Body extent estimated from a face: faces sit in the upper quarter to
// third of a standing body.
const (
	bodyHeightFactor = 6
	bodyWidthFactor  = 2
)

// RecoverBodies handles the "more faces than bodies" anomaly. For every
// face whose center lies inside no person box (tolerating a face up to
// 1.2x the person height above the torso), it searches the estimated
// body region below and around the face and accepts the best candidate
// only when the face sits in the top 40% of it. Accepted bodies are
// deduplicated against existing and already-recovered ones.
func RecoverBodies(faces, persons []photosheet.Detection, imgW, imgH int, search RegionSearch) []photosheet.Detection {
	if len(faces) <= len(persons) || len(faces) == 0 || search == nil {
		return nil
	}

	var recovered []photosheet.Detection
	for _, face := range faces {
		if hasContainingPerson(face, persons) {
			continue
		}
		region, ok := bodySearchRegion(face.Box, imgW, imgH)
		if !ok {
			continue
		}
		body, found := search(region)
		if !found {
			continue
		}
		// Plausibility: the face belongs in the upper part of the body.
		if face.Box.Y < body.Y || face.Box.Y > body.Y+int(float64(body.Height)*0.4) {
			continue
		}
		if isDuplicate(body, persons, recovered) {
			continue
		}
		recovered = append(recovered, photosheet.Detection{
			Kind:       photosheet.KindPerson,
			Confidence: recoveredBodyConfidence,
			Box:        body,
		})
		slog.Info("cuerpo recuperado alrededor de rostro aislado",
			"x", face.Box.X, "y", face.Box.Y)
	}
	return recovered
}

func hasContainingPerson(face photosheet.Detection, persons []photosheet.Detection) bool {
	cx, cy := face.Box.Center()
	for _, p := range persons {
		b := p.Box
		extendedBottom := b.Y + int(float64(b.Height)*1.2)
		if b.X <= cx && cx <= b.Right() && b.Y <= cy && cy <= extendedBottom {
			return true
		}
	}
	return false
}

func bodySearchRegion(face photosheet.Box, imgW, imgH int) (photosheet.Box, bool) {
	bodyH := face.Height * bodyHeightFactor
	bodyW := face.Width * bodyWidthFactor
	x := max(0, face.X-bodyW/4)
	y := max(0, face.Y-face.Height/2)
	w := min(imgW-x, bodyW)
	h := min(imgH-y, bodyH)
	if w <= 0 || h <= 0 {
		return photosheet.Box{}, false
	}
	return photosheet.Box{X: x, Y: y, Width: w, Height: h}, true
}

func isDuplicate(body photosheet.Box, existing, recovered []photosheet.Detection) bool {
	for _, p := range existing {
		if body.IoU(p.Box) > 0.3 {
			return true
		}
	}
	for _, p := range recovered {
		if body.IoU(p.Box) > 0.3 {
			return true
		}
	}
	return false
}

// EnforceConsistency applies the strict invariant faces <= persons after
// global suppression. With zero persons every face is treated as a false
// positive and dropped -- an aggressive rule that can discard real faces
// when the person detector simply failed, kept for parity with the
// documented behavior and off by default. Otherwise the excess faces
// with the lowest confidence are dropped.
func EnforceConsistency(faces, persons []photosheet.Detection) ([]photosheet.Detection, []photosheet.Detection) {
	if len(faces) <= len(persons) {
		return faces, persons
	}
	if len(persons) == 0 {
		slog.Warn("consistencia estricta: rostros sin cuerpos, descartando todos",
			"rostros", len(faces))
		return nil, persons
	}
	sorted := make([]photosheet.Detection, len(faces))
	copy(sorted, faces)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})
	slog.Warn("consistencia estricta: reduciendo rostros",
		"antes", len(faces), "después", len(persons))
	return sorted[:len(persons)], persons
}
