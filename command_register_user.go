package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const commandTimeout = 10 * time.Second

type RegisterUserMessage struct {
	Username    string `json:"username" form:"username"`
	Password    string `json:"password" form:"password"`
	DisplayName string `json:"display_name" form:"display_name"`
}

func (e RegisterUserMessage) Type() string { return "user.register" }

func (e RegisterUserMessage) Input() RegisterInput {
	return RegisterInput{
		Username:    e.Username,
		Password:    e.Password,
		DisplayName: e.DisplayName,
	}
}

// RegisterUserHandler runs registration as a command. The outcome is
// passed to OnResult when set.
type RegisterUserHandler struct {
	Provisioner *Provisioner
	OnResult    func(*AuthResult)
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) error {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	result, err := h.Provisioner.Register(ctx, event.Input())
	if err != nil {
		return err
	}

	if h.OnResult != nil {
		h.OnResult(result)
	}
	return nil
}
