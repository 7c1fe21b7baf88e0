package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/your-org/unfold/internal/models"
	"github.com/your-org/unfold/internal/storage"
	"github.com/your-org/unfold/pkg/dto"
)

type CampaignHandler struct {
	db *storage.PostgresStore
}

func NewCampaignHandler(db *storage.PostgresStore) *CampaignHandler {
	return &CampaignHandler{db: db}
}

// Status aggregates the checkpoint table into per-platform progress.
func (h *CampaignHandler) Status(c *gin.Context) {
	checkpoints, err := h.db.ListCheckpoints(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	status := dto.CampaignStatus{
		Persons:   len(checkpoints),
		Platforms: make(map[string]dto.PlatformProgress),
	}
	for _, pf := range models.AllPlatforms {
		var progress dto.PlatformProgress
		for _, cp := range checkpoints {
			if cp.Checked(pf) {
				progress.Checked++
			} else {
				progress.Pending++
			}
		}
		status.Platforms[string(pf)] = progress
	}
	for _, cp := range checkpoints {
		if cp.Complete() {
			status.Complete++
		}
	}

	c.JSON(http.StatusOK, status)
}

// Pending lists the person IDs not yet checked on a platform.
func (h *CampaignHandler) Pending(c *gin.Context) {
	pf := models.Platform(c.Param("platform"))
	if !pf.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown platform"})
		return
	}

	ids, err := h.db.UncheckedIDs(c.Request.Context(), pf)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if ids == nil {
		ids = []int64{}
	}

	c.JSON(http.StatusOK, gin.H{"platform": pf, "pending": ids, "total": len(ids)})
}
