package dto

import "github.com/your-org/unfold/internal/models"

// PersonSummary is the list-view projection of a person record.
type PersonSummary struct {
	ID              int64    `json:"id"`
	FirstName       string   `json:"first_name,omitempty"`
	LastName        string   `json:"last_name,omitempty"`
	Identifiability int      `json:"identifiability"`
	Platforms       []string `json:"platforms"`
	PhoneCount      int      `json:"phone_count"`
	FaceCount       int      `json:"face_count"`
	LocationCount   int      `json:"location_count"`
}

// PersonResponse is the full person record plus derived fields.
type PersonResponse struct {
	Person          *models.Person           `json:"person"`
	Identifiability int                      `json:"identifiability"`
	Checkpoint      *models.CheckpointRecord `json:"checkpoint,omitempty"`
}

type SearchResult struct {
	PersonID  int64   `json:"person_id"`
	FirstName string  `json:"first_name,omitempty"`
	LastName  string  `json:"last_name,omitempty"`
	Score     float32 `json:"score"`
}
