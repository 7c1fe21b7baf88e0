// Package match scores pairwise similarity between platform profiles.
package match

// Oracle supplies the externally trained similarity predicates the
// comparator depends on. The vision package provides the production
// implementation; tests substitute fixed-answer fakes.
type Oracle interface {
	// FacesMatch reports whether two face embeddings denote the same identity.
	FacesMatch(a, b []float32) bool
	// HashesSimilar reports whether two perceptual hashes denote
	// near-duplicate images.
	HashesSimilar(a, b uint64) bool
}

// NeverMatch answers no to every question. Used where image signals cannot
// occur, such as merging bare profiles during ingestion.
type NeverMatch struct{}

func (NeverMatch) FacesMatch(a, b []float32) bool { return false }
func (NeverMatch) HashesSimilar(a, b uint64) bool { return false }
