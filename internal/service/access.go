package service

import (
	"database/sql"
	"errors"

	"github.com/civic-connect/civic-api/internal/models"
	"github.com/civic-connect/civic-api/pkg/config"
	appErrors "github.com/civic-connect/civic-api/pkg/errors"
)

// ListLimits carries the default page size per resource and the hard ceiling.
type ListLimits struct {
	Jobs         int
	Products     int
	Applications int
	Reviews      int
	Users        int
	Max          int
}

// NewListLimits derives limits from configuration, falling back to the stock defaults.
func NewListLimits(cfg config.ListingConfig) ListLimits {
	pick := func(v, fallback int) int {
		if v > 0 {
			return v
		}
		return fallback
	}
	return ListLimits{
		Jobs:         pick(cfg.JobsLimit, 10),
		Products:     pick(cfg.ProductsLimit, 12),
		Applications: pick(cfg.ApplicationsLimit, 10),
		Reviews:      pick(cfg.ReviewsLimit, 10),
		Users:        pick(cfg.UsersLimit, 10),
		Max:          pick(cfg.MaxLimit, 100),
	}
}

// DefaultListLimits is used when a service is built without explicit limits.
var DefaultListLimits = NewListLimits(config.ListingConfig{})

// requireApproved rejects anonymous callers and callers still behind the approval gate.
func requireApproved(actor *models.User) error {
	if actor == nil {
		return appErrors.Clone(appErrors.ErrUnauthenticated, "authentication required")
	}
	if !actor.CanWrite() {
		return appErrors.Clone(appErrors.ErrNotApproved, "account is pending approval or was rejected")
	}
	return nil
}

// requireRole is an exact match. ADMIN does not inherit other roles here.
func requireRole(actor *models.User, role models.UserRole) error {
	if actor == nil {
		return appErrors.Clone(appErrors.ErrUnauthenticated, "authentication required")
	}
	if actor.Role != role {
		return appErrors.Clone(appErrors.ErrAccessDenied, "insufficient role")
	}
	return nil
}

func ownerOrAdmin(actor *models.User, ownerID string) error {
	if actor == nil {
		return appErrors.Clone(appErrors.ErrUnauthenticated, "authentication required")
	}
	if actor.IsAdmin() || actor.ID == ownerID {
		return nil
	}
	return appErrors.Clone(appErrors.ErrAccessDenied, "access denied")
}

// lookupError maps a repository miss onto tmpl and anything else onto an internal error.
func lookupError(err error, tmpl *appErrors.Error, internalMsg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(tmpl, "")
	}
	return appErrors.Internal(err, internalMsg)
}

func validationError(err error, msg string) error {
	return appErrors.Validation(err, msg)
}
