package server

import (
	"io"

	"folio/internal/featureflags"
	"folio/internal/models"

	"github.com/gofiber/fiber/v2"
)

type moderateRequest struct {
	Action string `json:"action"`
	Notes  string `json:"notes,omitempty"`
}

// CoverUploadResponse is returned after a cover image is stored.
type CoverUploadResponse struct {
	URL string `json:"url"`
}

// GetModerationQueue handles GET /api/admin/reviews/pending.
// @Summary Reviews awaiting moderation
// @Tags moderation-admin
// @Produce json
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {array} models.Review
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/reviews/pending [get]
func (s *Server) GetModerationQueue(c *fiber.Ctx) error {
	page := parsePagination(c, 20)
	reviews, err := s.contentService.ListModerationQueue(c.UserContext(), callerID(c), page.Limit, page.Offset)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(reviews)
}

// ModerateContent handles POST /api/admin/:kind/:id/moderate.
// @Summary Approve, reject or unpublish content
// @Tags moderation-admin
// @Accept json
// @Produce json
// @Param kind path string true "essays or reviews"
// @Param id path int true "Content ID"
// @Param request body moderateRequest true "Action and optional notes"
// @Success 200 {object} models.Review
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /admin/{kind}/{id}/moderate [post]
func (s *Server) ModerateContent(c *fiber.Ctx) error {
	kind, ok := models.ParseContentKind(c.Params("kind"))
	if !ok {
		return models.Respond(c, models.NewValidationError("Unknown content kind"))
	}
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req moderateRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	action, err := models.ParseModerationAction(kind, req.Action)
	if err != nil {
		return models.Respond(c, err)
	}

	item, err := s.contentService.Moderate(c.UserContext(), kind, id, action, callerID(c), req.Notes)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(item.Value())
}

// UploadCover handles POST /api/media/covers. The upload is re-encoded to
// WebP and its URL can be used as an essay's cover_image_url.
// @Summary Upload an essay cover image
// @Tags media
// @Accept mpfd
// @Produce json
// @Param image formData file true "Image file"
// @Success 201 {object} CoverUploadResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /media/covers [post]
func (s *Server) UploadCover(c *fiber.Ctx) error {
	userID := callerID(c)
	if s.blobs == nil || !s.featureFlags.Enabled(featureflags.CoverUploads, userID) {
		return models.Respond(c, models.NewNotFoundError("Route", c.Path()))
	}

	file, err := c.FormFile("image")
	if err != nil {
		return models.Respond(c, models.NewValidationError("No file uploaded"))
	}
	src, err := file.Open()
	if err != nil {
		return models.Respond(c, models.NewValidationError("Unable to read uploaded file"))
	}
	defer func() { _ = src.Close() }()

	content, err := io.ReadAll(src)
	if err != nil {
		return models.Respond(c, models.NewValidationError("Unable to read uploaded file"))
	}

	url, err := s.blobs.Put(c.UserContext(), userID, file.Header.Get(fiber.HeaderContentType), content)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(CoverUploadResponse{URL: url})
}

// GetFeatureFlags returns configured feature flags and evaluated state for the current user.
// @Summary Feature flags
// @Tags meta
// @Produce json
// @Success 200 {object} object{raw=map[string]string,evaluated=map[string]bool}
// @Router /feature-flags [get]
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	if s.featureFlags == nil {
		return c.JSON(fiber.Map{
			"raw":       map[string]string{},
			"evaluated": map[string]bool{},
		})
	}

	return c.JSON(fiber.Map{
		"raw":       s.featureFlags.Raw(),
		"evaluated": s.featureFlags.Snapshot(callerID(c)),
	})
}
