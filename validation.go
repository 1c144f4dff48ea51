package auth

import (
	"errors"
	"regexp"
	"strings"
	"unicode"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// RegisterInput is the registration payload
type RegisterInput struct {
	Username    string `json:"username" form:"username"`
	Password    string `json:"password" form:"password"`
	DisplayName string `json:"display_name" form:"display_name"`
}

// Validate will validate the payload
func (r RegisterInput) Validate() error {
	return validateStruct(&r,
		validation.Field(&r.Username, usernameRules()...),
		validation.Field(&r.Password,
			validation.Required,
			validation.Length(8, 128),
			validation.By(passwordStrength),
		),
		validation.Field(&r.DisplayName, validation.Required, validation.RuneLength(1, 100)),
	)
}

// LoginInput is the login payload
type LoginInput struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
	// ClientKey scopes rate limiting, usually the remote address
	ClientKey string `json:"-" form:"-"`
}

// Validate only checks presence so password rules are not leaked
func (r LoginInput) Validate() error {
	return validateStruct(&r,
		validation.Field(&r.Username, validation.Required),
		validation.Field(&r.Password, validation.Required, validation.Length(1, 128)),
	)
}

// ProfileInput is used to create a profile
type ProfileInput struct {
	DisplayName string         `json:"display_name"`
	Bio         string         `json:"bio,omitempty"`
	AvatarURL   string         `json:"avatar_url,omitempty"`
	BannerURL   string         `json:"banner_url,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Validate will validate the payload
func (r ProfileInput) Validate() error {
	return validateStruct(&r,
		validation.Field(&r.DisplayName, validation.Required, validation.RuneLength(1, 100)),
		validation.Field(&r.Bio, validation.RuneLength(0, 500)),
		validation.Field(&r.AvatarURL, is.URL),
		validation.Field(&r.BannerURL, is.URL),
	)
}

// ProfilePatch is a partial profile update. Nil fields are left alone.
type ProfilePatch struct {
	DisplayName *string        `json:"display_name,omitempty"`
	Bio         *string        `json:"bio,omitempty"`
	AvatarURL   *string        `json:"avatar_url,omitempty"`
	BannerURL   *string        `json:"banner_url,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Validate will validate the payload
func (r ProfilePatch) Validate() error {
	return validateStruct(&r,
		validation.Field(&r.DisplayName, validation.NilOrNotEmpty, validation.By(notBlank), validation.RuneLength(1, 100)),
		validation.Field(&r.Bio, validation.RuneLength(0, 500)),
		validation.Field(&r.AvatarURL, is.URL),
		validation.Field(&r.BannerURL, is.URL),
	)
}

// IsEmpty reports whether the patch changes nothing
func (r ProfilePatch) IsEmpty() bool {
	return r.DisplayName == nil && r.Bio == nil && r.AvatarURL == nil &&
		r.BannerURL == nil && r.Metadata == nil
}

// Columns returns the patch as column values
func (r ProfilePatch) Columns() map[string]any {
	cols := map[string]any{}
	if r.DisplayName != nil {
		cols["display_name"] = strings.TrimSpace(*r.DisplayName)
	}
	if r.Bio != nil {
		cols["bio"] = *r.Bio
	}
	if r.AvatarURL != nil {
		cols["avatar_url"] = *r.AvatarURL
	}
	if r.BannerURL != nil {
		cols["banner_url"] = *r.BannerURL
	}
	if r.Metadata != nil {
		cols["metadata"] = r.Metadata
	}
	return cols
}

func usernameRules() []validation.Rule {
	return []validation.Rule{
		validation.Required,
		validation.Length(3, 30),
		validation.Match(usernamePattern).Error("must contain only letters, numbers, underscores and hyphens"),
	}
}

func notBlank(value any) error {
	var s string
	switch v := value.(type) {
	case *string:
		if v == nil {
			return nil
		}
		s = *v
	case string:
		s = v
	default:
		return nil
	}
	if strings.TrimSpace(s) == "" {
		return errors.New("cannot be blank")
	}
	return nil
}

func passwordStrength(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}

	var upper, lower, digit bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}

	if !upper || !lower || !digit {
		return errors.New("must contain an uppercase letter, a lowercase letter and a number")
	}
	return nil
}

// validateStruct runs ozzo rules and converts field errors into a
// validation error carrying the field map.
func validateStruct(structPtr any, fields ...*validation.FieldRules) error {
	err := validation.ValidateStruct(structPtr, fields...)
	if err == nil {
		return nil
	}

	var fieldErrs validation.Errors
	if errors.As(err, &fieldErrs) {
		out := make(map[string]string, len(fieldErrs))
		for name, ferr := range fieldErrs {
			if ferr != nil {
				out[name] = ferr.Error()
			}
		}
		return NewValidationError(out)
	}

	return internalError(err, "input validation failed")
}
