package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/maestro_backend/config"
	"github.com/mmdatafocus/maestro_backend/middlewares"
	"github.com/mmdatafocus/maestro_backend/models"
	"github.com/mmdatafocus/maestro_backend/models/reports"
	"github.com/mmdatafocus/maestro_backend/session"
	"github.com/mmdatafocus/maestro_backend/utils"
	"github.com/mmdatafocus/maestro_backend/workflow"
	"github.com/sirupsen/logrus"
)

// ExportSink stores a rendered export and returns a download link for it.
type ExportSink func(ctx context.Context, campaignId int, name string, format reports.Format, data []byte) (*utils.SignedDownload, error)

// Handler serves the REST surface over the store and the review workflow.
type Handler struct {
	store    *models.Store
	service  *workflow.Service
	sessions *session.Store
	logger   *logrus.Logger
	exports  ExportSink
}

type Option func(*Handler)

func WithLogger(logger *logrus.Logger) Option {
	return func(h *Handler) { h.logger = logger }
}

// WithExportSink makes export endpoints answer with a signed link instead of
// streaming the file.
func WithExportSink(sink ExportSink) Option {
	return func(h *Handler) { h.exports = sink }
}

func NewHandler(store *models.Store, service *workflow.Service, sessions *session.Store, opts ...Option) *Handler {
	h := &Handler{
		store:    store,
		service:  service,
		sessions: sessions,
		logger:   config.GetLogger(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// GCSExportSink uploads exports to the configured bucket and signs a GET link.
func GCSExportSink(expires time.Duration) ExportSink {
	return func(ctx context.Context, campaignId int, name string, format reports.Format, data []byte) (*utils.SignedDownload, error) {
		key := utils.ExportObjectKey(campaignId, name, format.Extension())
		if err := utils.UploadBytesToGCS(ctx, key, data, format.ContentType()); err != nil {
			return nil, err
		}
		link, err := utils.SignDownload(ctx, key, expires)
		if err != nil {
			if derr := utils.DeleteObjectFromGCS(ctx, key); derr != nil {
				config.LogError(config.GetLogger(), "api", "GCSExportSink", "delete unsigned export", key, derr)
			}
			return nil, err
		}
		return link, nil
	}
}

// Register mounts every route on r. SessionMiddleware must already be in
// the chain.
func (h *Handler) Register(r gin.IRouter) {
	r.POST("/auth/login", h.login())

	authed := r.Group("", middlewares.RequireSession())
	authed.POST("/auth/logout", h.logout())
	authed.GET("/auth/me", h.me())
	authed.GET("/campaigns/active", h.activeCampaigns())
	authed.POST("/campaigns/:id/scans", h.createScan())
	authed.GET("/campaigns/:id/scans/mine", h.myScans())
	authed.GET("/maestro/:sku", h.lookupMaestro())
	authed.GET("/dictionaries", h.listDictionaries())

	admin := r.Group("/admin", middlewares.RequireAdmin())
	admin.GET("/campaigns", h.listCampaigns())
	admin.POST("/campaigns", h.createCampaign())
	admin.GET("/campaigns/:id", h.getCampaign())
	admin.PUT("/campaigns/:id", h.updateCampaign())
	admin.POST("/campaigns/:id/toggle", h.toggleCampaign())

	admin.GET("/campaigns/:id/review", h.review())
	admin.GET("/campaigns/:id/review/export", h.exportReview())
	admin.GET("/campaigns/:id/review/:sku", h.reviewSku())
	admin.POST("/campaigns/:id/decisions", h.decide())

	admin.GET("/campaigns/:id/queue", h.queue())
	admin.GET("/campaigns/:id/queue/export", h.exportQueue())
	admin.POST("/campaigns/:id/queue/apply", h.queueBatch(models.QueueOpApply))
	admin.POST("/campaigns/:id/queue/reject", h.queueBatch(models.QueueOpReject))
	admin.POST("/campaigns/:id/queue/archive", h.queueBatch(models.QueueOpArchive))
	admin.POST("/campaigns/:id/queue/unarchive", h.queueBatch(models.QueueOpUnarchive))

	admin.GET("/campaigns/:id/discrepancies", h.discrepancies())
	admin.GET("/campaigns/:id/discrepancies/export", h.exportDiscrepancies())
	admin.GET("/campaigns/:id/history", h.history())

	admin.POST("/maestro/import", h.importMaestro())
	admin.GET("/maestro/export", h.exportMaestro())
	admin.POST("/dictionaries/import", h.importDictionary())

	admin.GET("/outbox/stats", h.outboxStats())
	admin.POST("/outbox/requeue", h.requeueOutbox())
	admin.GET("/users", h.listUsers())
	admin.POST("/users", h.createUser())
}
