package server

import (
	"folio/internal/models"
	"folio/internal/service"

	"github.com/gofiber/fiber/v2"
)

type commentRequest struct {
	Content string `json:"content"`
}

type voteRequest struct {
	VoteType string `json:"vote_type"`
}

// parseParentType resolves the :parentType segment. Unknown values answer 404
// since the route itself does not exist for them.
func parseParentType(c *fiber.Ctx) (models.ParentType, error) {
	pt, ok := models.ParseParentType(c.Params("parentType"))
	if !ok {
		_ = models.RespondWithError(c, fiber.StatusNotFound, models.NewNotFoundError("Route", c.Path()))
		return "", errResponseWritten
	}
	return pt, nil
}

// ListComments handles GET /api/:parentType/:parentId/comments.
// @Summary List approved comments under an essay, review or comment
// @Tags comments
// @Produce json
// @Param parentType path string true "essays, reviews or comments"
// @Param parentId path int true "Parent ID"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {array} models.Comment
// @Failure 404 {object} models.ErrorResponse
// @Router /{parentType}/{parentId}/comments [get]
func (s *Server) ListComments(c *fiber.Ctx) error {
	parentType, err := parseParentType(c)
	if err != nil {
		return nil
	}
	parentID, err := s.parseID(c, "parentId")
	if err != nil {
		return nil
	}
	page := parsePagination(c, 50)

	comments, err := s.commentService.List(c.UserContext(), parentType, parentID, callerID(c), page.Limit, page.Offset)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(comments)
}

// PostComment handles POST /api/:parentType/:parentId/comments.
// @Summary Post a comment or reply
// @Description Replies nest at most five levels deep.
// @Tags comments
// @Accept json
// @Produce json
// @Param parentType path string true "essays, reviews or comments"
// @Param parentId path int true "Parent ID"
// @Param request body commentRequest true "Comment"
// @Success 201 {object} models.Comment
// @Failure 400 {object} models.ErrorResponse
// @Failure 422 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /{parentType}/{parentId}/comments [post]
func (s *Server) PostComment(c *fiber.Ctx) error {
	parentType, err := parseParentType(c)
	if err != nil {
		return nil
	}
	parentID, err := s.parseID(c, "parentId")
	if err != nil {
		return nil
	}
	var req commentRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	comment, err := s.commentService.Post(c.UserContext(), service.PostCommentInput{
		AuthorID:   callerID(c),
		ParentType: parentType,
		ParentID:   parentID,
		Content:    req.Content,
	})
	if err != nil {
		return models.Respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// UpdateComment handles PUT /api/comments/:id (owner only).
// @Summary Edit a comment
// @Tags comments
// @Accept json
// @Produce json
// @Param id path int true "Comment ID"
// @Param request body commentRequest true "Comment"
// @Success 200 {object} models.Comment
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /comments/{id} [put]
func (s *Server) UpdateComment(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req commentRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	comment, err := s.commentService.Update(c.UserContext(), id, req.Content, callerID(c))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(comment)
}

// DeleteComment handles DELETE /api/comments/:id (owner or admin).
// @Summary Delete a comment
// @Tags comments
// @Param id path int true "Comment ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /comments/{id} [delete]
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if _, err := s.commentService.Delete(c.UserContext(), id, callerID(c)); err != nil {
		return models.Respond(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ToggleLike handles POST /api/essays/:id/like and POST /api/comments/:id/like.
// @Summary Toggle a like
// @Description Likes when not yet liked, unlikes otherwise, and returns the new count.
// @Tags likes
// @Produce json
// @Param id path int true "Target ID"
// @Success 200 {object} service.LikeResult
// @Failure 404 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /essays/{id}/like [post]
func (s *Server) ToggleLike(kind models.LikeKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := s.parseID(c, "id")
		if err != nil {
			return nil
		}
		result, err := s.likeService.Toggle(c.UserContext(), kind, id, callerID(c))
		if err != nil {
			return models.Respond(c, err)
		}
		return c.JSON(result)
	}
}

// LikeStatus handles GET /api/essays/:id/like and GET /api/comments/:id/like.
// @Summary Like status
// @Tags likes
// @Produce json
// @Param id path int true "Target ID"
// @Success 200 {object} service.LikeResult
// @Router /essays/{id}/like [get]
func (s *Server) LikeStatus(kind models.LikeKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := s.parseID(c, "id")
		if err != nil {
			return nil
		}
		result, err := s.likeService.Status(c.UserContext(), kind, id, callerID(c))
		if err != nil {
			return models.Respond(c, err)
		}
		return c.JSON(result)
	}
}

// RecordVote handles POST /api/reviews/:id/vote. A second vote by the same
// reader replaces the first.
// @Summary Vote on a review's helpfulness
// @Tags votes
// @Accept json
// @Produce json
// @Param id path int true "Review ID"
// @Param request body voteRequest true "helpful or not_helpful"
// @Success 200 {object} models.VoteSummary
// @Failure 400 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /reviews/{id}/vote [post]
func (s *Server) RecordVote(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	var req voteRequest
	if err := parseBody(c, &req); err != nil {
		return nil
	}

	ctx := c.UserContext()
	userID := callerID(c)
	if err := s.voteService.Record(ctx, id, req.VoteType, userID); err != nil {
		return models.Respond(c, err)
	}
	summary, err := s.voteService.Summary(ctx, id, userID)
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(summary)
}

// VoteSummary handles GET /api/reviews/:id/votes.
// @Summary Review vote totals
// @Tags votes
// @Produce json
// @Param id path int true "Review ID"
// @Success 200 {object} models.VoteSummary
// @Router /reviews/{id}/votes [get]
func (s *Server) VoteSummary(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	summary, err := s.voteService.Summary(c.UserContext(), id, callerID(c))
	if err != nil {
		return models.Respond(c, err)
	}
	return c.JSON(summary)
}
