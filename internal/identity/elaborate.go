package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/your-org/unfold/internal/models"
	"github.com/your-org/unfold/internal/observability"
)

var (
	// ErrNoPhotos means a profile has no images to elaborate: none were
	// supplied and none could be downloaded. A normal negative result.
	ErrNoPhotos = errors.New("profile has no photos")

	// ErrCorruptImage marks an image that failed basic decode validation.
	// The elaborator deletes such files and continues.
	ErrCorruptImage = errors.New("corrupt image")
)

// ImageSource downloads a profile's images. Platform clients implement it;
// the boolean result is false when the profile has nothing to download.
type ImageSource interface {
	DownloadProfilePhoto(ctx context.Context, prof *models.Profile, path string) (bool, error)
	DownloadPostImages(ctx context.Context, prof *models.Profile, dir string, maxCount int) (bool, error)
}

// FaceExtractor produces face embeddings from an image file. An image
// without faces yields an empty slice; an undecodable image yields an
// error wrapping ErrCorruptImage.
type FaceExtractor interface {
	ExtractFaceEmbeddings(path string) ([][]float32, error)
}

// Hasher computes a perceptual hash of an image file.
type Hasher interface {
	PerceptualHash(path string) (uint64, error)
}

// MediaArchive receives elaborated images for long-term storage. Archival
// is best-effort; failures never abort elaboration.
type MediaArchive interface {
	ArchiveImage(ctx context.Context, key, path string) error
}

// Elaborator computes the image-derived signals of a profile: it obtains
// the profile's images, extracts face embeddings and perceptual hashes
// from each, and flips the profile's Elaborated flag. Per-image work is
// fanned out across a bounded worker pool; profile mutation happens only
// after all workers have joined.
type Elaborator struct {
	Faces   FaceExtractor
	Hashes  Hasher
	Sources map[models.Platform]ImageSource
	Archive MediaArchive // optional

	// MaxImages bounds how many post images are downloaded per profile.
	MaxImages int
	// Workers bounds the per-image extraction pool; defaults to NumCPU.
	Workers int
	// RetryBackoff is the pause before the single retry of a failed
	// download.
	RetryBackoff time.Duration
}

// Elaborate is a no-op for already elaborated profiles. Otherwise it
// downloads the profile's images into a temporary directory, extracts
// signals from every decodable image, accumulates them on the profile and
// marks it elaborated. The temporary directory is removed on every exit
// path.
func (e *Elaborator) Elaborate(ctx context.Context, prof *models.Profile) error {
	if prof.Elaborated {
		return nil
	}

	dir, err := os.MkdirTemp("", "unfold-media-")
	if err != nil {
		return fmt.Errorf("create media dir: %w", err)
	}
	defer os.RemoveAll(dir)

	if err := e.download(ctx, prof, dir); err != nil {
		return err
	}
	return e.ElaborateDir(ctx, prof, dir)
}

// ElaborateDir elaborates a profile from an existing image directory,
// skipping the download step. The directory is not removed.
func (e *Elaborator) ElaborateDir(ctx context.Context, prof *models.Profile, dir string) error {
	files, err := listImageFiles(dir)
	if err != nil {
		return fmt.Errorf("list images: %w", err)
	}
	if len(files) == 0 {
		return ErrNoPhotos
	}

	start := time.Now()
	results := e.processImages(ctx, files)
	observability.ElaborationDuration.Observe(time.Since(start).Seconds())

	for _, res := range results {
		prof.FaceEmbeddings = append(prof.FaceEmbeddings, res.faces...)
		if res.hashed {
			prof.AddHash(res.hash)
		}
	}

	if e.Archive != nil {
		e.archive(ctx, prof, dir)
	}

	prof.Elaborated = true
	observability.ProfilesElaborated.WithLabelValues(string(prof.Platform)).Inc()
	return nil
}

func (e *Elaborator) download(ctx context.Context, prof *models.Profile, dir string) error {
	src, ok := e.Sources[prof.Platform]
	if !ok {
		return ErrNoPhotos
	}

	profilePath := filepath.Join(dir, "profile.jpg")
	if _, err := e.withRetry(ctx, func() (bool, error) {
		return src.DownloadProfilePhoto(ctx, prof, profilePath)
	}); err != nil {
		slog.Warn("download profile photo", "platform", prof.Platform,
			"username", prof.Username, "error", err)
	}

	if _, err := e.withRetry(ctx, func() (bool, error) {
		return src.DownloadPostImages(ctx, prof, dir, e.maxImages())
	}); err != nil {
		slog.Warn("download post images", "platform", prof.Platform,
			"username", prof.Username, "error", err)
	}

	files, err := listImageFiles(dir)
	if err != nil {
		return fmt.Errorf("list images: %w", err)
	}
	if len(files) == 0 {
		return ErrNoPhotos
	}
	return nil
}

// withRetry runs a download once and, on failure, once more after a
// backoff. A second failure is returned to the caller, which logs and
// moves on; a lost image is never fatal.
func (e *Elaborator) withRetry(ctx context.Context, fn func() (bool, error)) (bool, error) {
	ok, err := fn()
	if err == nil || ctx.Err() != nil {
		return ok, err
	}

	backoff := e.RetryBackoff
	if backoff <= 0 {
		backoff = 2 * time.Second
	}
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case <-time.After(backoff):
	}
	return fn()
}

type imageSignals struct {
	faces  [][]float32
	hash   uint64
	hashed bool
}

// processImages runs face and hash extraction over every file, bounded by
// the worker pool. Corrupt images are deleted and skipped.
func (e *Elaborator) processImages(ctx context.Context, files []string) []imageSignals {
	workers := e.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(files) {
		workers = len(files)
	}

	jobs := make(chan string)
	out := make(chan imageSignals, len(files))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				if sig, ok := e.processImage(path); ok {
					out <- sig
				}
			}
		}()
	}

	for _, path := range files {
		select {
		case jobs <- path:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
	}
	close(jobs)
	wg.Wait()
	close(out)

	results := make([]imageSignals, 0, len(files))
	for sig := range out {
		results = append(results, sig)
	}
	return results
}

func (e *Elaborator) processImage(path string) (imageSignals, bool) {
	var sig imageSignals

	faces, err := e.Faces.ExtractFaceEmbeddings(path)
	if err != nil {
		if errors.Is(err, ErrCorruptImage) {
			_ = os.Remove(path)
			return sig, false
		}
		slog.Warn("extract faces", "path", path, "error", err)
	} else {
		sig.faces = faces
	}

	hash, err := e.Hashes.PerceptualHash(path)
	if err != nil {
		if errors.Is(err, ErrCorruptImage) {
			_ = os.Remove(path)
			return sig, len(sig.faces) > 0
		}
		slog.Warn("hash image", "path", path, "error", err)
	} else {
		sig.hash = hash
		sig.hashed = true
	}

	return sig, sig.hashed || len(sig.faces) > 0
}

func (e *Elaborator) archive(ctx context.Context, prof *models.Profile, dir string) {
	files, err := listImageFiles(dir)
	if err != nil {
		return
	}
	for _, path := range files {
		key := fmt.Sprintf("media/%s/%s/%s", prof.Platform, prof.ExternalID, filepath.Base(path))
		if err := e.Archive.ArchiveImage(ctx, key, path); err != nil {
			slog.Warn("archive image", "key", key, "error", err)
		}
	}
}

func (e *Elaborator) maxImages() int {
	if e.MaxImages > 0 {
		return e.MaxImages
	}
	return 30
}

func listImageFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	return files, nil
}
