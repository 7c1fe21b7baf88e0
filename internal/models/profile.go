package models

// Profile holds the identity data of a single platform account. Each
// platform populates a subset of the optional fields: Telegram splits
// first/last name and may expose a phone number, Instagram/Facebook/
// Twitter expose only a combined full name plus a biography.
//
// Optional string fields use "" for absent. Platform is immutable once
// set; Elaborated transitions false→true exactly once, when the
// image-derived signals (face embeddings, perceptual hashes) have been
// computed.
type Profile struct {
	Platform   Platform `json:"platform"`
	ExternalID string   `json:"external_id,omitempty"`
	Username   string   `json:"username,omitempty"`
	FirstName  string   `json:"first_name,omitempty"`
	LastName   string   `json:"last_name,omitempty"`
	FullName   string   `json:"full_name,omitempty"`
	Biography  string   `json:"biography,omitempty"`
	Private    bool     `json:"private,omitempty"`

	Phone *Phone `json:"phone,omitempty"`

	// Locations are kept most recent first; reordered on every mutation.
	Locations []Location `json:"locations,omitempty"`

	// FaceEmbeddings are opaque fixed-length identity vectors produced by
	// the external face oracle.
	FaceEmbeddings [][]float32 `json:"face_embeddings,omitempty"`

	// PerceptualHashes are deduplicated by value before insertion.
	PerceptualHashes []uint64 `json:"perceptual_hashes,omitempty"`

	Elaborated bool `json:"elaborated"`
}

// AddLocations appends locations and restores the most-recent-first order.
func (p *Profile) AddLocations(locs ...Location) {
	if len(locs) == 0 {
		return
	}
	p.Locations = append(p.Locations, locs...)
	SortLocationsByTime(p.Locations)
}

// AddHash inserts a perceptual hash unless the exact value is already present.
func (p *Profile) AddHash(h uint64) {
	for _, existing := range p.PerceptualHashes {
		if existing == h {
			return
		}
	}
	p.PerceptualHashes = append(p.PerceptualHashes, h)
}
