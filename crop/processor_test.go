package crop_test

import (
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user0608/photosheet"
	"github.com/user0608/photosheet/crop"
)

func writeTestImage(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, imaging.Save(imaging.New(w, h, image.White.C), path))
	return path
}

func TestLoad_MissingFile(t *testing.T) {
	p := crop.NewProcessor(0)
	_, err := p.Load("/no/such/image.jpg")
	assert.ErrorIs(t, err, photosheet.ErrNotFound)
}

func TestLoad_UnsupportedExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hola"), 0o644))

	p := crop.NewProcessor(0)
	_, err := p.Load(path)
	assert.ErrorIs(t, err, photosheet.ErrInvalidParameter)
}

func TestLoad_RejectsMismatchedContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fake.jpg")
	require.NoError(t, os.WriteFile(path, []byte("this is not a jpeg"), 0o644))

	p := crop.NewProcessor(0)
	_, err := p.Load(path)
	assert.ErrorIs(t, err, photosheet.ErrInvalidParameter,
		"validation goes by content, not extension")
}

func TestLoad_SizeLimit(t *testing.T) {
	dir := t.TempDir()
	path := writeTestImage(t, dir, "big.jpg", 100, 100)

	p := crop.NewProcessor(10)
	_, err := p.Load(path)
	assert.ErrorIs(t, err, photosheet.ErrInvalidParameter)
}

func TestProcessRequest_CropsToTargetRatio(t *testing.T) {
	dir := t.TempDir()
	path := writeTestImage(t, dir, "photo.jpg", 800, 600)

	p := crop.NewProcessor(0)
	result, err := p.ProcessRequest(photosheet.CropRequest{
		ImagePath:         path,
		TargetAspectRatio: photosheet.AspectRatio{Width: 16, Height: 9},
		CropStrategy:      photosheet.StrategyCenter,
		OutputPath:        filepath.Join(dir, "out.jpg"),
	})
	require.NoError(t, err)

	assert.Equal(t, photosheet.Box{X: 0, Y: 75, Width: 800, Height: 450}, result.CropCoordinates)
	assert.Equal(t, photosheet.AspectRatio{Width: 800, Height: 450}, result.FinalDimensions)
	assert.FileExists(t, result.ProcessedPath)

	saved, err := imaging.Open(result.ProcessedPath)
	require.NoError(t, err)
	assert.Equal(t, 800, saved.Bounds().Dx())
	assert.Equal(t, 450, saved.Bounds().Dy())
}

func TestProcessRequest_DefaultOutputGoesToProcessedDir(t *testing.T) {
	dir := t.TempDir()
	path := writeTestImage(t, dir, "photo.jpg", 400, 400)

	p := crop.NewProcessor(0)
	result, err := p.ProcessRequest(photosheet.CropRequest{
		ImagePath:         path,
		TargetAspectRatio: photosheet.AspectRatio{Width: 1, Height: 1},
		CropStrategy:      photosheet.StrategyCenter,
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "processed"), filepath.Dir(result.ProcessedPath))
	assert.FileExists(t, result.ProcessedPath)
}

func TestSave_RewritesUnknownExtension(t *testing.T) {
	dir := t.TempDir()
	p := crop.NewProcessor(0)
	saved, err := p.Save(imaging.New(10, 10, image.White.C), filepath.Join(dir, "out.webp"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "out.jpg"), saved)
	assert.FileExists(t, saved)
}
