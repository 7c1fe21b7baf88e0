package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/your-org/unfold/internal/api/handlers"
	"github.com/your-org/unfold/internal/api/ws"
	"github.com/your-org/unfold/internal/auth"
	"github.com/your-org/unfold/internal/queue"
	"github.com/your-org/unfold/internal/storage"
)

type RouterConfig struct {
	APIKey     string
	RatePerSec float64
	RateBurst  int
	DB         *storage.PostgresStore
	MinIO      *storage.MinIOStore
	Producer   *queue.Producer
	Hub        *ws.Hub
	// EmbedFn extracts a face embedding from image bytes (from the vision
	// oracle). Nil disables face search.
	EmbedFn func(imageData []byte) ([]float32, error)
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggingMiddleware())
	r.Use(cors.Default())

	// System endpoints (no auth)
	systemH := handlers.NewSystemHandler(cfg.DB, cfg.MinIO, cfg.Producer)
	r.GET("/healthz", systemH.Healthz)
	r.GET("/readyz", systemH.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 (with auth)
	v1 := r.Group("/v1")
	v1.Use(auth.APIKeyMiddleware(cfg.APIKey))
	v1.Use(RateLimitMiddleware(cfg.RatePerSec, cfg.RateBurst))

	// WebSocket
	v1.GET("/ws", cfg.Hub.HandleWS)

	// Persons
	personH := handlers.NewPersonHandler(cfg.DB, cfg.MinIO)
	personH.EmbedFn = cfg.EmbedFn
	v1.GET("/persons", personH.List)
	v1.GET("/persons/:id", personH.Get)
	v1.GET("/persons/:id/media", personH.ListMedia)
	v1.GET("/media/*key", personH.GetMedia)
	v1.POST("/search", personH.Search)

	// Campaign progress
	campaignH := handlers.NewCampaignHandler(cfg.DB)
	v1.GET("/campaign", campaignH.Status)
	v1.GET("/campaign/pending/:platform", campaignH.Pending)

	return r
}
