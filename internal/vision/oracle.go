package vision

import (
	"bytes"
	"fmt"
	"image"
	"log/slog"
	"math/bits"
	"os"
	"path/filepath"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/your-org/unfold/internal/config"
	"github.com/your-org/unfold/internal/identity"
)

// Oracle answers the two perceptual questions the scorer asks: do two face
// embeddings belong to the same person, and are two perceptual hashes close
// enough to be the same image. It also implements embedding extraction for
// the elaborator on top of the ONNX detector and embedder.
type Oracle struct {
	detector *Detector
	embedder *Embedder

	recognitionThreshold float32
	hashTolerance        int
}

// NewOracle loads the detection and recognition models from cfg.ModelsDir.
func NewOracle(cfg config.VisionConfig) (*Oracle, error) {
	detPath := filepath.Join(cfg.ModelsDir, "det_10g.onnx")
	embPath := filepath.Join(cfg.ModelsDir, "w600k_r50.onnx")

	slog.Info("loading detection model", "path", detPath)
	det, err := NewDetector(detPath, float32(cfg.DetectionThreshold), nil)
	if err != nil {
		return nil, fmt.Errorf("load detector: %w", err)
	}

	slog.Info("loading embedding model", "path", embPath)
	emb, err := NewEmbedder(embPath)
	if err != nil {
		det.Close()
		return nil, fmt.Errorf("load embedder: %w", err)
	}

	return &Oracle{
		detector:             det,
		embedder:             emb,
		recognitionThreshold: float32(cfg.RecognitionThreshold),
		hashTolerance:        cfg.HashTolerance,
	}, nil
}

// FacesMatch reports whether two embeddings are the same person. Embeddings
// are L2-normalized, so cosine similarity reduces to a dot product.
func (o *Oracle) FacesMatch(a, b []float32) bool {
	if len(a) == 0 || len(a) != len(b) {
		return false
	}
	var sim float32
	for i := range a {
		sim += a[i] * b[i]
	}
	return sim >= o.recognitionThreshold
}

// HashesSimilar reports whether two perceptual hashes are within the
// configured hamming distance.
func (o *Oracle) HashesSimilar(a, b uint64) bool {
	return bits.OnesCount64(a^b) <= o.hashTolerance
}

// ExtractFaceEmbeddings detects every face in the image file and returns one
// embedding per face. An image with no faces yields an empty slice.
func (o *Oracle) ExtractFaceEmbeddings(path string) ([][]float32, error) {
	img, err := decodeImageFile(path)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	origW := bounds.Dx()
	origH := bounds.Dy()

	detInput := preprocessForDetection(img, o.detector.inputW, o.detector.inputH)
	detections, err := o.detector.Detect(detInput, origW, origH)
	if err != nil {
		return nil, fmt.Errorf("detect: %w", err)
	}

	var embeddings [][]float32
	for _, det := range detections {
		faceCrop := cropFace(img, det.BBox)
		if faceCrop == nil {
			continue
		}
		embInput := preprocessForEmbedding(faceCrop, o.embedder.inputW, o.embedder.inputH)
		embedding, err := o.embedder.Extract(embInput)
		if err != nil {
			slog.Warn("embed face", "path", path, "error", err)
			continue
		}
		embeddings = append(embeddings, embedding)
	}
	return embeddings, nil
}

// PerceptualHash computes the average hash of the image file.
func (o *Oracle) PerceptualHash(path string) (uint64, error) {
	img, err := decodeImageFile(path)
	if err != nil {
		return 0, err
	}
	return AverageHash(img), nil
}

// ExtractPrimaryEmbedding embeds the highest-confidence face in raw image
// bytes. Used by the API's face search endpoint.
func (o *Oracle) ExtractPrimaryEmbedding(data []byte) ([]float32, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	detInput := preprocessForDetection(img, o.detector.inputW, o.detector.inputH)
	detections, err := o.detector.Detect(detInput, bounds.Dx(), bounds.Dy())
	if err != nil {
		return nil, fmt.Errorf("detect: %w", err)
	}
	if len(detections) == 0 {
		return nil, fmt.Errorf("no face detected in image")
	}

	best := detections[0]
	for _, d := range detections[1:] {
		if d.Confidence > best.Confidence {
			best = d
		}
	}

	faceCrop := cropFace(img, best.BBox)
	if faceCrop == nil {
		return nil, fmt.Errorf("failed to crop face")
	}

	embInput := preprocessForEmbedding(faceCrop, o.embedder.inputW, o.embedder.inputH)
	return o.embedder.Extract(embInput)
}

func (o *Oracle) Close() {
	if o.detector != nil {
		o.detector.Close()
	}
	if o.embedder != nil {
		o.embedder.Close()
	}
}

func decodeImageFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", identity.ErrCorruptImage, path, err)
	}
	return img, nil
}
