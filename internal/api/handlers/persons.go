package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/your-org/unfold/internal/identity"
	"github.com/your-org/unfold/internal/models"
	"github.com/your-org/unfold/internal/storage"
	"github.com/your-org/unfold/pkg/dto"
)

type PersonHandler struct {
	db    *storage.PostgresStore
	minio *storage.MinIOStore
	// EmbedFn extracts the primary face embedding from image bytes. Set
	// after the vision oracle is initialized.
	EmbedFn func(imageData []byte) ([]float32, error)
}

func NewPersonHandler(db *storage.PostgresStore, minio *storage.MinIOStore) *PersonHandler {
	return &PersonHandler{db: db, minio: minio}
}

func (h *PersonHandler) List(c *gin.Context) {
	persons, err := h.db.ListPersons(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.PersonSummary, 0, len(persons))
	for _, p := range persons {
		resp = append(resp, summarize(p))
	}

	c.JSON(http.StatusOK, gin.H{"persons": resp, "total": len(resp)})
}

func (h *PersonHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid person id"})
		return
	}

	person, err := h.db.GetPerson(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if person == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "person not found"})
		return
	}

	checkpoint, err := h.db.GetCheckpoint(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, dto.PersonResponse{
		Person:          person,
		Identifiability: identity.Identifiability(person),
		Checkpoint:      checkpoint,
	})
}

// ListMedia returns the archived media keys for a person, grouped per
// merged profile.
func (h *PersonHandler) ListMedia(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid person id"})
		return
	}

	person, err := h.db.GetPerson(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if person == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "person not found"})
		return
	}

	media := make(map[string][]string)
	for _, prof := range person.Profiles {
		prefix := fmt.Sprintf("media/%s/%s/", prof.Platform, prof.ExternalID)
		keys, err := h.minio.ListObjects(c.Request.Context(), prefix)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if len(keys) > 0 {
			media[string(prof.Platform)] = append(media[string(prof.Platform)], keys...)
		}
	}

	c.JSON(http.StatusOK, gin.H{"person_id": id, "media": media})
}

// GetMedia streams one archived image by key.
func (h *PersonHandler) GetMedia(c *gin.Context) {
	key := c.Param("key")
	if len(key) > 0 && key[0] == '/' {
		key = key[1:]
	}
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "media key required"})
		return
	}

	data, err := h.minio.GetObject(c.Request.Context(), key)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "media not found"})
		return
	}
	c.Data(http.StatusOK, "image/jpeg", data)
}

// Search performs a face similarity search by uploading an image.
func (h *PersonHandler) Search(c *gin.Context) {
	file, _, err := c.Request.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file required"})
		return
	}
	defer file.Close()

	imageData, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "read image failed"})
		return
	}

	if h.EmbedFn == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "vision oracle not initialized"})
		return
	}

	embedding, err := h.EmbedFn(imageData)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "failed to extract face: " + err.Error()})
		return
	}

	threshold := 0.4
	if v := c.PostForm("threshold"); v != "" {
		if t, err := strconv.ParseFloat(v, 64); err == nil {
			threshold = t
		}
	}
	limit := 5
	if v := c.PostForm("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	matches, err := h.db.SearchFaces(c.Request.Context(), embedding, threshold, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	results := make([]dto.SearchResult, 0, len(matches))
	for _, m := range matches {
		results = append(results, dto.SearchResult{
			PersonID:  m.PersonID,
			FirstName: m.FirstName,
			LastName:  m.LastName,
			Score:     m.Score,
		})
	}

	c.JSON(http.StatusOK, gin.H{"results": results, "total": len(results)})
}

func summarize(p *models.Person) dto.PersonSummary {
	seen := make(map[models.Platform]bool)
	var platforms []string
	for _, prof := range p.Profiles {
		if !seen[prof.Platform] {
			seen[prof.Platform] = true
			platforms = append(platforms, string(prof.Platform))
		}
	}
	return dto.PersonSummary{
		ID:              p.ID,
		FirstName:       p.FirstName,
		LastName:        p.LastName,
		Identifiability: identity.Identifiability(p),
		Platforms:       platforms,
		PhoneCount:      len(p.Phones),
		FaceCount:       len(p.FaceEmbeddings),
		LocationCount:   len(p.Locations),
	}
}
