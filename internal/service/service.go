// Package service holds the business rules behind the HTTP handlers.
package service

import (
	"context"
	"log/slog"

	"folio/internal/models"
	"folio/internal/notifications"
)

// AdminChecker reports whether a user may moderate content.
type AdminChecker func(ctx context.Context, userID uint) (bool, error)

// EventPublisher is the part of notifications.Notifier the services use.
type EventPublisher interface {
	PublishBroadcast(ctx context.Context, ev notifications.Event) error
	PublishUser(ctx context.Context, userID uint, ev notifications.Event) error
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func publishBroadcast(ctx context.Context, events EventPublisher, ev notifications.Event) {
	if events == nil {
		return
	}
	if err := events.PublishBroadcast(ctx, ev); err != nil {
		slog.WarnContext(ctx, "failed to publish engagement event", "type", ev.Type, "error", err)
	}
}

func publishUser(ctx context.Context, events EventPublisher, userID uint, ev notifications.Event) {
	if events == nil {
		return
	}
	if err := events.PublishUser(ctx, userID, ev); err != nil {
		slog.WarnContext(ctx, "failed to publish user event", "type", ev.Type, "user_id", userID, "error", err)
	}
}

// checkAdmin treats a missing checker as "nobody is an admin".
func checkAdmin(ctx context.Context, isAdmin AdminChecker, userID uint) (bool, error) {
	if isAdmin == nil || userID == 0 {
		return false, nil
	}
	return isAdmin(ctx, userID)
}

func requireAdmin(ctx context.Context, isAdmin AdminChecker, userID uint) error {
	if userID == 0 {
		return models.NewAuthError("Sign in to continue")
	}
	admin, err := checkAdmin(ctx, isAdmin, userID)
	if err != nil {
		return err
	}
	if !admin {
		return models.NewPermissionError("Admin access required")
	}
	return nil
}

// ownerOrAdmin fails with a permission error unless userID owns the
// resource or is an admin.
func ownerOrAdmin(ctx context.Context, isAdmin AdminChecker, ownerID, userID uint, message string) error {
	if ownerID == userID {
		return nil
	}
	admin, err := checkAdmin(ctx, isAdmin, userID)
	if err != nil {
		return err
	}
	if !admin {
		return models.NewPermissionError(message)
	}
	return nil
}

// normalizePage clamps limit into [1, maxPageSize] with fallback as the default.
func normalizePage(limit, offset, fallback int) (int, int) {
	if limit <= 0 {
		limit = fallback
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
