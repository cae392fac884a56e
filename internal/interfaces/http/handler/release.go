package handler

import (
	"github.com/depositry/backend/internal/application/publication"
	"github.com/depositry/backend/internal/domain/release"
	"github.com/depositry/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReleaseHandler serves release status, linked records and badge data
type ReleaseHandler struct {
	BaseHandler
	releases  release.Repository
	resolver  *publication.Resolver
	presenter *publication.Presenter
	logger    *zap.Logger
}

// NewReleaseHandler creates a new ReleaseHandler
func NewReleaseHandler(releases release.Repository, resolver *publication.Resolver, presenter *publication.Presenter, logger *zap.Logger) *ReleaseHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReleaseHandler{
		releases:  releases,
		resolver:  resolver,
		presenter: presenter,
		logger:    logger,
	}
}

// RegisterRoutes registers all release routes
func (h *ReleaseHandler) RegisterRoutes(rg *gin.RouterGroup) {
	releases := rg.Group("/releases")
	{
		releases.GET("/:id", h.Get)
		releases.GET("/:id/record", h.GetRecord)
		releases.GET("/:id/badge", h.GetBadge)
	}
}

// Get returns the release with its status and record linkage
func (h *ReleaseHandler) Get(c *gin.Context) {
	rel, ok := h.findRelease(c)
	if !ok {
		return
	}
	h.Success(c, dto.ReleaseResponseFromDomain(rel))
}

// GetRecord returns the serialized record published from the release.
// Responds 404 when the release has no linkage or the record is gone.
func (h *ReleaseHandler) GetRecord(c *gin.Context) {
	rel, ok := h.findRelease(c)
	if !ok {
		return
	}

	record, err := h.resolver.ResolveRecord(c.Request.Context(), rel)
	if err != nil {
		h.logger.Error("Failed to resolve record for release",
			zap.String("release_id", rel.ID.String()),
			zap.Error(err))
		h.HandleError(c, err)
		return
	}
	if record == nil {
		h.NotFound(c, "Release has no published record")
		return
	}

	h.Success(c, h.presenter.SerializeRecord(record))
}

// GetBadge returns the badge data for the release's record
func (h *ReleaseHandler) GetBadge(c *gin.Context) {
	rel, ok := h.findRelease(c)
	if !ok {
		return
	}

	record, err := h.resolver.ResolveRecord(c.Request.Context(), rel)
	if err != nil {
		h.logger.Error("Failed to resolve record for release",
			zap.String("release_id", rel.ID.String()),
			zap.Error(err))
		h.HandleError(c, err)
		return
	}
	if record == nil {
		h.NotFound(c, "Release has no published record")
		return
	}

	h.Success(c, dto.BadgeResponse{
		Title: h.presenter.BadgeTitle(record),
		Value: h.presenter.BadgeValue(record),
		URL:   h.presenter.RecordURL(record),
	})
}

// findRelease parses the id parameter and loads the release. On failure
// it writes the error response and returns ok=false.
func (h *ReleaseHandler) findRelease(c *gin.Context) (*release.Release, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid release ID")
		return nil, false
	}

	rel, err := h.releases.FindByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return nil, false
	}
	return rel, true
}
