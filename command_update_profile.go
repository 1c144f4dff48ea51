package auth

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

type UpdateProfileMessage struct {
	UserID uuid.UUID    `json:"user_id"`
	Patch  ProfilePatch `json:"patch"`
}

func (e UpdateProfileMessage) Type() string { return "profile.update" }

type UpdateProfileHandler struct {
	Provisioner *Provisioner
	OnResult    func(*Profile)
}

func (h *UpdateProfileHandler) Execute(ctx context.Context, event UpdateProfileMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during profile update",
		)
	default:
	}

	if event.UserID == uuid.Nil {
		return NewValidationError(map[string]string{"user_id": "cannot be blank"})
	}

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	profile, err := h.Provisioner.UpdateProfile(ctx, event.UserID, event.Patch)
	if err != nil {
		return err
	}

	if h.OnResult != nil {
		h.OnResult(profile)
	}
	return nil
}
