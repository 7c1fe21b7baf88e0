package identity

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/unfold/internal/models"
)

// contentExtractor keys its answers on file contents so tests control the
// signals per image.
type contentExtractor struct{}

func (contentExtractor) ExtractFaceEmbeddings(path string) ([][]float32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch string(data) {
	case "corrupt":
		return nil, fmt.Errorf("decode %s: %w", path, ErrCorruptImage)
	case "two-faces":
		return [][]float32{{1}, {2}}, nil
	case "one-face":
		return [][]float32{{3}}, nil
	}
	return nil, nil
}

type contentHasher struct{}

func (contentHasher) PerceptualHash(path string) (uint64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	if string(data) == "corrupt" {
		return 0, fmt.Errorf("decode %s: %w", path, ErrCorruptImage)
	}
	return uint64(len(data)), nil
}

func writeImage(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestElaborateDirAccumulatesSignals(t *testing.T) {
	dir := t.TempDir()
	writeImage(t, dir, "a.jpg", "two-faces")
	writeImage(t, dir, "b.jpg", "one-face")

	el := &Elaborator{Faces: contentExtractor{}, Hashes: contentHasher{}, Workers: 2}
	prof := &models.Profile{Platform: models.PlatformInstagram, Username: "u"}

	require.NoError(t, el.ElaborateDir(context.Background(), prof, dir))
	assert.True(t, prof.Elaborated)
	assert.Len(t, prof.FaceEmbeddings, 3)
	assert.Len(t, prof.PerceptualHashes, 2)
}

func TestElaborateDirEmpty(t *testing.T) {
	el := &Elaborator{Faces: contentExtractor{}, Hashes: contentHasher{}}
	prof := &models.Profile{}
	err := el.ElaborateDir(context.Background(), prof, t.TempDir())
	assert.ErrorIs(t, err, ErrNoPhotos)
	assert.False(t, prof.Elaborated)
}

func TestElaborateDirRemovesCorruptImages(t *testing.T) {
	dir := t.TempDir()
	writeImage(t, dir, "bad.jpg", "corrupt")
	writeImage(t, dir, "good.jpg", "one-face")

	el := &Elaborator{Faces: contentExtractor{}, Hashes: contentHasher{}, Workers: 1}
	prof := &models.Profile{}
	require.NoError(t, el.ElaborateDir(context.Background(), prof, dir))

	assert.Len(t, prof.FaceEmbeddings, 1)
	_, err := os.Stat(filepath.Join(dir, "bad.jpg"))
	assert.True(t, os.IsNotExist(err), "corrupt file should be deleted")
}

func TestElaborateNoopWhenAlreadyElaborated(t *testing.T) {
	el := &Elaborator{Faces: contentExtractor{}, Hashes: contentHasher{}}
	prof := &models.Profile{Elaborated: true}
	assert.NoError(t, el.Elaborate(context.Background(), prof))
}

func TestElaborateWithoutSourceIsNoPhotos(t *testing.T) {
	el := &Elaborator{
		Faces:   contentExtractor{},
		Hashes:  contentHasher{},
		Sources: map[models.Platform]ImageSource{},
	}
	prof := &models.Profile{Platform: models.PlatformTwitter}
	assert.ErrorIs(t, el.Elaborate(context.Background(), prof), ErrNoPhotos)
}
