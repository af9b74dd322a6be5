package server

import (
	"strconv"

	"folio/internal/models"
	"folio/internal/service"

	"github.com/gofiber/fiber/v2"
)

// SelectionResponse is the reader's marked points in one discussion.
type SelectionResponse struct {
	DiscussionID string `json:"discussion_id"`
	Selected     []int  `json:"selected"`
}

type progressRequest struct {
	Status         string `json:"status"`
	CurrentChapter int    `json:"current_chapter"`
	Notes          string `json:"notes"`
}

// ListDiscussions handles GET /api/discussions.
// @Summary List book discussions
// @Tags discussions
// @Produce json
// @Success 200 {array} discussions.Summary
// @Router /discussions [get]
func (s *Server) ListDiscussions(c *fiber.Ctx) error {
	return c.JSON(s.selectionService.Discussions())
}

// GetDiscussion handles GET /api/discussions/:id.
// @Summary Get a discussion transcript
// @Tags discussions
// @Produce json
// @Param id path string true "Discussion ID"
// @Success 200 {object} discussions.Discussion
// @Failure 404 {object} models.ErrorResponse
// @Router /discussions/{id} [get]
func (s *Server) GetDiscussion(c *fiber.Ctx) error {
	d, err := s.selectionService.Discussion(c.Params("id"))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(d)
}

// GetSelection handles GET /api/discussions/:id/points.
// @Summary Current reader's marked points
// @Tags discussions
// @Produce json
// @Param id path string true "Discussion ID"
// @Success 200 {object} SelectionResponse
// @Router /discussions/{id}/points [get]
func (s *Server) GetSelection(c *fiber.Ctx) error {
	discussionID := c.Params("id")
	selected, err := s.selectionService.Get(c.UserContext(), discussionID, callerID(c))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(SelectionResponse{DiscussionID: discussionID, Selected: selected})
}

// ToggleSelection handles POST /api/discussions/:id/points/:index/toggle.
// Selecting a point marks every earlier point; deselecting clears it and
// every later point.
// @Summary Toggle a discussion point
// @Tags discussions
// @Produce json
// @Param id path string true "Discussion ID"
// @Param index path int true "Zero-based message index"
// @Success 200 {object} SelectionResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /discussions/{id}/points/{index}/toggle [post]
func (s *Server) ToggleSelection(c *fiber.Ctx) error {
	discussionID := c.Params("id")
	index, err := strconv.Atoi(c.Params("index"))
	if err != nil {
		return models.Respond(c, models.NewValidationError("Invalid index"))
	}

	selected, err := s.selectionService.Toggle(c.UserContext(), discussionID, index, callerID(c))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(SelectionResponse{DiscussionID: discussionID, Selected: selected})
}

// GetMyProgress handles GET /api/progress/me. Readers without a record are
// reported as planning.
// @Summary Current reader's progress
// @Tags progress
// @Produce json
// @Success 200 {object} models.ReadingProgress
// @Security BearerAuth
// @Router /progress/me [get]
func (s *Server) GetMyProgress(c *fiber.Ctx) error {
	userID := callerID(c)
	progress, err := s.progressService.Get(c.UserContext(), userID)
	if models.HasCode(err, models.CodeNotFound) {
		return c.JSON(models.ReadingProgress{UserID: userID, Status: models.ProgressPlanning})
	}
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(progress)
}

// UpdateMyProgress handles PUT /api/progress/me.
// @Summary Update reading progress
// @Tags progress
// @Accept json
// @Produce json
// @Param request body progressRequest true "Progress"
// @Success 200 {object} models.ReadingProgress
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /progress/me [put]
func (s *Server) UpdateMyProgress(c *fiber.Ctx) error {
	var req progressRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}
	progress, err := s.progressService.Upsert(c.UserContext(), service.UpdateProgressInput{
		UserID:         callerID(c),
		Status:         req.Status,
		CurrentChapter: req.CurrentChapter,
		Notes:          req.Notes,
	})
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(progress)
}
