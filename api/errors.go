package api

import (
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"

	auth "github.com/goliatone/go-syr-auth"
)

// StatusFor maps an error kind to its HTTP status
func StatusFor(kind auth.ErrorKind) int {
	switch kind {
	case auth.KindValidation:
		return fiber.StatusBadRequest
	case auth.KindInvalidCredentials, auth.KindUnauthenticated:
		return fiber.StatusUnauthorized
	case auth.KindNotFound:
		return fiber.StatusNotFound
	case auth.KindAlreadyExists:
		return fiber.StatusConflict
	case auth.KindRateLimited:
		return fiber.StatusTooManyRequests
	default:
		return fiber.StatusInternalServerError
	}
}

var textCodes = map[auth.ErrorKind]string{
	auth.KindValidation:         auth.TextCodeValidation,
	auth.KindInvalidCredentials: auth.TextCodeInvalidCredentials,
	auth.KindAlreadyExists:      auth.TextCodeAlreadyExists,
	auth.KindNotFound:           auth.TextCodeNotFound,
	auth.KindUnauthenticated:    auth.TextCodeUnauthenticated,
	auth.KindRateLimited:        auth.TextCodeRateLimited,
	auth.KindInternal:           auth.TextCodeInternal,
}

func (a *Controller) writeError(ctx *fiber.Ctx, err error) error {
	kind := auth.KindOf(err)
	status := StatusFor(kind)

	body := fiber.Map{
		"code":    textCodes[kind],
		"message": publicMessage(kind, err),
	}

	if kind == auth.KindValidation {
		if fields := auth.ValidationFields(err); len(fields) > 0 {
			body["fields"] = fields
		}
	}

	if kind == auth.KindInternal {
		a.Logger.Error("request failed", "path", ctx.Path(), "error", err)
	}

	return ctx.Status(status).JSON(fiber.Map{"error": body})
}

func publicMessage(kind auth.ErrorKind, err error) string {
	if kind == auth.KindInternal {
		return "internal error"
	}
	var rich *goerrors.Error
	if goerrors.As(err, &rich) && rich != nil && rich.Message != "" {
		return rich.Message
	}
	return kind.String()
}

func malformedBody(err error) error {
	verr := auth.NewValidationError(map[string]string{
		"body": "could not parse request body",
	})
	verr.Source = err
	return verr
}
