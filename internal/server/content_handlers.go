package server

import (
	"folio/internal/models"
	"folio/internal/service"

	"github.com/gofiber/fiber/v2"
)

// createContentRequest is the body for POST /api/essays and /api/reviews.
// Rating applies to reviews; excerpt and cover to essays.
type createContentRequest struct {
	Title         string `json:"title"`
	Content       string `json:"content"`
	Excerpt       string `json:"excerpt,omitempty"`
	CoverImageURL string `json:"cover_image_url,omitempty"`
	Rating        int    `json:"rating,omitempty"`
}

type updateContentRequest struct {
	Title         *string `json:"title"`
	Content       *string `json:"content"`
	Excerpt       *string `json:"excerpt"`
	CoverImageURL *string `json:"cover_image_url"`
	Rating        *int    `json:"rating"`
}

// ListContent handles GET /api/essays and GET /api/reviews.
// @Summary List published essays or reviews
// @Tags content
// @Produce json
// @Param kind path string true "essays or reviews"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {array} models.Essay
// @Router /{kind} [get]
func (s *Server) ListContent(kind models.ContentKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		page := parsePagination(c, 20)
		items, err := s.contentService.List(c.UserContext(), kind, page.Limit, page.Offset)
		if err != nil {
			return models.Respond(c, err)
		}
		return c.JSON(unwrapItems(items))
	}
}

// GetContent handles GET /api/essays/:id and GET /api/reviews/:id. Items
// that are not publicly visible are returned only to their owner or an admin.
// @Summary Get an essay or review
// @Tags content
// @Produce json
// @Param kind path string true "essays or reviews"
// @Param id path int true "Content ID"
// @Success 200 {object} models.Essay
// @Failure 404 {object} models.ErrorResponse
// @Router /{kind}/{id} [get]
func (s *Server) GetContent(kind models.ContentKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := s.parseID(c, "id")
		if err != nil {
			return nil
		}
		item, err := s.contentService.Get(c.UserContext(), kind, id, callerID(c))
		if err != nil {
			return models.Respond(c, err)
		}
		return c.JSON(item.Value())
	}
}

// CreateContent handles POST /api/essays and POST /api/reviews.
// @Summary Create an essay or review
// @Description Essays publish immediately; reviews enter the moderation queue.
// @Tags content
// @Accept json
// @Produce json
// @Param kind path string true "essays or reviews"
// @Param request body createContentRequest true "Content"
// @Success 201 {object} models.Essay
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /{kind} [post]
func (s *Server) CreateContent(kind models.ContentKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req createContentRequest
		if err := parseBody(c, &req); err != nil {
			return nil
		}

		item, err := s.contentService.Create(c.UserContext(), kind, service.CreateContentInput{
			AuthorID:      callerID(c),
			Title:         req.Title,
			Content:       req.Content,
			Excerpt:       req.Excerpt,
			CoverImageURL: req.CoverImageURL,
			Rating:        req.Rating,
		})
		if err != nil {
			return models.Respond(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(item.Value())
	}
}

// UpdateContent handles PUT /api/essays/:id and PUT /api/reviews/:id (owner only).
// @Summary Update an essay or review
// @Tags content
// @Accept json
// @Produce json
// @Param kind path string true "essays or reviews"
// @Param id path int true "Content ID"
// @Param request body updateContentRequest true "Fields to change"
// @Success 200 {object} models.Essay
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /{kind}/{id} [put]
func (s *Server) UpdateContent(kind models.ContentKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := s.parseID(c, "id")
		if err != nil {
			return nil
		}
		var req updateContentRequest
		if err := parseBody(c, &req); err != nil {
			return nil
		}

		item, err := s.contentService.Update(c.UserContext(), kind, id, service.UpdateContentInput{
			RequesterID:   callerID(c),
			Title:         req.Title,
			Content:       req.Content,
			Excerpt:       req.Excerpt,
			CoverImageURL: req.CoverImageURL,
			Rating:        req.Rating,
		})
		if err != nil {
			return models.Respond(c, err)
		}
		return c.JSON(item.Value())
	}
}

// DeleteContent handles DELETE /api/essays/:id and DELETE /api/reviews/:id.
// @Summary Delete an essay or review
// @Tags content
// @Param kind path string true "essays or reviews"
// @Param id path int true "Content ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /{kind}/{id} [delete]
func (s *Server) DeleteContent(kind models.ContentKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := s.parseID(c, "id")
		if err != nil {
			return nil
		}
		if err := s.contentService.Delete(c.UserContext(), kind, id, callerID(c)); err != nil {
			return models.Respond(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// ListAuthorEssays handles GET /api/users/:id/essays. The author sees
// their unpublished essays too.
// @Summary List an author's essays
// @Tags content
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {array} models.Essay
// @Router /users/{id}/essays [get]
func (s *Server) ListAuthorEssays(c *fiber.Ctx) error {
	authorID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	page := parsePagination(c, 20)
	essays, err := s.contentService.ListByAuthor(c.UserContext(), authorID, callerID(c), page.Limit, page.Offset)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(essays)
}

func unwrapItems(items []*models.ContentItem) []any {
	out := make([]any, 0, len(items))
	for _, item := range items {
		out = append(out, item.Value())
	}
	return out
}
