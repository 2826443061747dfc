package detect_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user0608/photosheet"
	"github.com/user0608/photosheet/detect"
)

func TestMergeCandidates_KeepsLargestOfCluster(t *testing.T) {
	cands := []detect.Candidate{
		{Box: photosheet.Box{X: 10, Y: 10, Width: 90, Height: 90}},
		{Box: photosheet.Box{X: 0, Y: 0, Width: 100, Height: 100}},
		{Box: photosheet.Box{X: 300, Y: 300, Width: 50, Height: 50}},
	}
	merged := detect.MergeCandidates(cands)
	require.Len(t, merged, 2, "the overlapping pair should collapse into one")
	assert.Equal(t, photosheet.Box{X: 0, Y: 0, Width: 100, Height: 100}, merged[0].Box,
		"the largest box of the cluster should survive")
	assert.Equal(t, photosheet.Box{X: 300, Y: 300, Width: 50, Height: 50}, merged[1].Box)
}

func TestMergeCandidates_SmallInputsPassThrough(t *testing.T) {
	assert.Empty(t, detect.MergeCandidates(nil))
	one := []detect.Candidate{{Box: photosheet.Box{Width: 10, Height: 10}}}
	assert.Equal(t, one, detect.MergeCandidates(one))
}

func TestScoreFaces_CenteredFace(t *testing.T) {
	cands := []detect.Candidate{
		{Box: photosheet.Box{X: 450, Y: 450, Width: 100, Height: 100}},
	}
	dets := detect.ScoreFaces(cands, 1000, 1000, 0.4)
	require.Len(t, dets, 1)
	assert.Equal(t, photosheet.KindFace, dets[0].Kind)
	// size 0.8, aspect 1.0, edge capped at 0.9
	assert.InDelta(t, 0.885, dets[0].Confidence, 1e-9)
}

func TestScoreFaces_RejectsImplausibleCandidates(t *testing.T) {
	cands := []detect.Candidate{
		{Box: photosheet.Box{X: 0, Y: 0, Width: 10, Height: 10}},    // too small
		{Box: photosheet.Box{X: 0, Y: 0, Width: 100, Height: 200}},  // elongated
		{Box: photosheet.Box{X: 0, Y: 0, Width: 900, Height: 900}},  // most of the image
	}
	assert.Empty(t, detect.ScoreFaces(cands, 1000, 1000, 0.0))
}

func TestScoreFaces_ThresholdFilters(t *testing.T) {
	cands := []detect.Candidate{
		{Box: photosheet.Box{X: 450, Y: 450, Width: 100, Height: 100}},
	}
	assert.Empty(t, detect.ScoreFaces(cands, 1000, 1000, 0.9),
		"a face below the requested threshold should be dropped")
}

func TestScorePersons_BlendsWeightWithGeometry(t *testing.T) {
	cands := []detect.Candidate{
		{Box: photosheet.Box{X: 400, Y: 300, Width: 200, Height: 400}, Weight: 0.5},
	}
	dets := detect.ScorePersons(cands, 1000, 1000, 0.35)
	require.Len(t, dets, 1)
	assert.Equal(t, photosheet.KindPerson, dets[0].Kind)
	assert.InDelta(t, 0.768333, dets[0].Confidence, 1e-4)
}

func TestScorePersons_FloorNeverDropsBelow035(t *testing.T) {
	// Weak candidate near a corner, low backend weight.
	cands := []detect.Candidate{
		{Box: photosheet.Box{X: 10, Y: 10, Width: 40, Height: 40}, Weight: -1.5},
	}
	dets := detect.ScorePersons(cands, 1000, 1000, 0.2)
	assert.Empty(t, dets, "the 0.35 floor applies even with a lower requested threshold")
}
