// Package sheet arranges processed images into printable A4 sheets,
// rendered either as a pixel canvas or a PDF page.
package sheet

import (
	"github.com/user0608/photosheet"
)

// A4 at 300 DPI for the pixel canvas, and in points for the PDF page.
const (
	A4WidthPx  = 2480
	A4HeightPx = 3508
	MarginPx   = 150
	paddingPx  = 20

	A4WidthPt  = 595.28
	A4HeightPt = 841.89
	MarginPt   = 36.0
	paddingPt  = 20.0

	// Processed images are produced at print resolution.
	imageDPI = 300
	pointDPI = 72
)

// SheetDimensions returns the pixel canvas size for an orientation.
func SheetDimensions(o photosheet.Orientation) (int, int) {
	if o == photosheet.Landscape {
		return A4HeightPx, A4WidthPx
	}
	return A4WidthPx, A4HeightPx
}

// Placement positions one scaled image on the pixel canvas,
// origin top-left.
type Placement struct {
	Index  int
	X, Y   int
	Width  int
	Height int
}

// PlanPixelLayout places images row-major into the grid, each scaled to
// fit its padded cell preserving aspect ratio and centered within the
// cell. Images beyond the grid capacity are not placed.
func PlanPixelLayout(sizes []photosheet.Dimensions, grid photosheet.GridLayout, sheetW, sheetH int) []Placement {
	cellW := (sheetW - 2*MarginPx) / grid.Columns
	cellH := (sheetH - 2*MarginPx) / grid.Rows

	var placements []Placement
	for i, size := range sizes {
		row := i / grid.Columns
		col := i % grid.Columns
		if row >= grid.Rows {
			break
		}
		w, h := fitWithin(size.Width, size.Height, cellW-2*paddingPx, cellH-2*paddingPx)
		placements = append(placements, Placement{
			Index:  i,
			X:      MarginPx + col*cellW + (cellW-w)/2,
			Y:      MarginPx + row*cellH + (cellH-h)/2,
			Width:  w,
			Height: h,
		})
	}
	return placements
}

// PagePlacement positions one image on the PDF page in points,
// origin bottom-left.
type PagePlacement struct {
	Index  int
	X, Y   float64
	Width  float64
	Height float64
}

// PlanPageLayout is the point-space counterpart of PlanPixelLayout.
// Rows grow downward visually, which on a bottom-left origin page means
// the cell baseline is measured down from the top margin.
func PlanPageLayout(sizes []photosheet.Dimensions, grid photosheet.GridLayout, pageW, pageH float64) []PagePlacement {
	cellW := (pageW - 2*MarginPt) / float64(grid.Columns)
	cellH := (pageH - 2*MarginPt) / float64(grid.Rows)

	var placements []PagePlacement
	for i, size := range sizes {
		row := i / grid.Columns
		col := i % grid.Columns
		if row >= grid.Rows {
			break
		}
		imgW := float64(size.Width) * pointDPI / imageDPI
		imgH := float64(size.Height) * pointDPI / imageDPI
		scale := min((cellW-2*paddingPt)/imgW, (cellH-2*paddingPt)/imgH)
		w := imgW * scale
		h := imgH * scale

		cellX := MarginPt + float64(col)*cellW
		cellY := pageH - MarginPt - float64(row+1)*cellH
		placements = append(placements, PagePlacement{
			Index:  i,
			X:      cellX + (cellW-w)/2,
			Y:      cellY + (cellH-h)/2,
			Width:  w,
			Height: h,
		})
	}
	return placements
}

func fitWithin(srcW, srcH, targetW, targetH int) (int, int) {
	scale := min(float64(targetW)/float64(srcW), float64(targetH)/float64(srcH))
	return int(float64(srcW) * scale), int(float64(srcH) * scale)
}
