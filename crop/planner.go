// Package crop computes crop geometry for aspect-ratio conversion and
// executes the crop against the image file.
package crop

import (
	"github.com/user0608/photosheet"
)

// PlanCrop computes the crop window for an image so its ratio matches
// the target exactly (up to integer truncation), positioned according
// to the strategy. The window never exceeds the image bounds.
func PlanCrop(imgW, imgH int, target photosheet.AspectRatio, dets []photosheet.Detection, strategy photosheet.CropStrategy) photosheet.Box {
	targetRatio := target.Value()
	currentRatio := float64(imgW) / float64(imgH)

	var cropW, cropH int
	if currentRatio > targetRatio {
		// Wider than target: keep full height, trim width.
		cropH = imgH
		cropW = int(float64(cropH) * targetRatio)
	} else {
		cropW = imgW
		cropH = int(float64(cropW) / targetRatio)
	}
	cropW = min(cropW, imgW)
	cropH = min(cropH, imgH)

	var x, y int
	switch {
	case strategy == photosheet.StrategyCenterFaces && len(dets) > 0:
		x, y = centerOnDetections(dets, cropW, cropH, imgW, imgH)
	case strategy == photosheet.StrategyPreserveAll && len(dets) > 0:
		x, y = preserveAllDetections(dets, cropW, cropH)
	default:
		x = (imgW - cropW) / 2
		y = (imgH - cropH) / 2
	}

	x = max(0, min(x, imgW-cropW))
	y = max(0, min(y, imgH-cropH))
	return photosheet.Box{X: x, Y: y, Width: cropW, Height: cropH}
}

// centerOnDetections centers the window on the confidence×area weighted
// centroid of the faces, falling back to persons, then to plain center.
func centerOnDetections(dets []photosheet.Detection, cropW, cropH, imgW, imgH int) (int, int) {
	subset := photosheet.ByKind(dets, photosheet.KindFace)
	if len(subset) == 0 {
		subset = photosheet.ByKind(dets, photosheet.KindPerson)
	}
	if len(subset) == 0 {
		return (imgW - cropW) / 2, (imgH - cropH) / 2
	}

	var totalX, totalY, totalWeight float64
	for _, d := range subset {
		weight := d.Confidence * float64(d.Box.Area())
		cx, cy := d.Box.Center()
		totalX += float64(cx) * weight
		totalY += float64(cy) * weight
		totalWeight += weight
	}
	centerX, centerY := imgW/2, imgH/2
	if totalWeight > 0 {
		centerX = int(totalX / totalWeight)
		centerY = int(totalY / totalWeight)
	}
	return centerX - cropW/2, centerY - cropH/2
}

// preserveAllDetections centers the window on the box enclosing every
// detection, then shifts (never resizes) it so the enclosure is covered
// when it fits. When the detections cannot all fit the centered position
// stands: partial coverage beats resizing.
func preserveAllDetections(dets []photosheet.Detection, cropW, cropH int) (int, int) {
	boxes := make([]photosheet.Box, len(dets))
	for i, d := range dets {
		boxes[i] = d.Box
	}
	bounds, _ := photosheet.Enclosing(boxes)

	cx, cy := bounds.Center()
	x := cx - cropW/2
	y := cy - cropH/2

	if bounds.Width > cropW || bounds.Height > cropH {
		return x, y
	}
	if x > bounds.X {
		x = bounds.X
	}
	if y > bounds.Y {
		y = bounds.Y
	}
	if x+cropW < bounds.Right() {
		x = bounds.Right() - cropW
	}
	if y+cropH < bounds.Bottom() {
		y = bounds.Bottom() - cropH
	}
	return x, y
}
