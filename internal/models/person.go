package models

// Person is a resolved cross-platform identity. All mutation goes through
// the identity aggregator's merge operation; persons are never deleted,
// only re-persisted as new signals arrive.
type Person struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`

	// Phones is append-only; the same number may appear more than once if
	// merged from several profiles.
	Phones []Phone `json:"phones,omitempty"`

	// Locations accumulate from all merged profiles, most recent first.
	Locations []Location `json:"locations,omitempty"`

	// Profiles is append-only, one canonical profile per platform by
	// convention (not enforced here; callers check before merging).
	Profiles []Profile `json:"profiles,omitempty"`

	FaceEmbeddings   [][]float32 `json:"face_embeddings,omitempty"`
	PerceptualHashes []uint64    `json:"perceptual_hashes,omitempty"`
}

func NewPerson(id int64) *Person {
	return &Person{ID: id}
}

// ProfilesFor returns the person's profiles for one platform.
func (p *Person) ProfilesFor(platform Platform) []Profile {
	var out []Profile
	for _, prof := range p.Profiles {
		if prof.Platform == platform {
			out = append(out, prof)
		}
	}
	return out
}

// HasProfile reports whether the person already has a profile on the platform.
func (p *Person) HasProfile(platform Platform) bool {
	for _, prof := range p.Profiles {
		if prof.Platform == platform {
			return true
		}
	}
	return false
}

// HasExternalID reports whether the person already carries the given
// platform account.
func (p *Person) HasExternalID(platform Platform, externalID string) bool {
	for _, prof := range p.Profiles {
		if prof.Platform == platform && prof.ExternalID == externalID {
			return true
		}
	}
	return false
}
