package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-print"

	auth "github.com/goliatone/go-syr-auth"
	"github.com/goliatone/go-syr-auth/middleware/sessionware"
)

type ControllerRoutes struct {
	Register  string
	Login     string
	Logout    string
	LogoutAll string
	Me        string
	Sessions  string
	Profile   string
}

type Controller struct {
	Debug       bool
	Logger      auth.Logger
	Provisioner *auth.Provisioner
	Routes      *ControllerRoutes
	Cookie      sessionware.CookieConfig
	ContextKey  string
}

type ControllerOption func(*Controller) *Controller

func WithProvisioner(p *auth.Provisioner) ControllerOption {
	return func(c *Controller) *Controller {
		c.Provisioner = p
		return c
	}
}

func WithCookie(cc sessionware.CookieConfig) ControllerOption {
	return func(c *Controller) *Controller {
		c.Cookie = cc
		return c
	}
}

func WithLogger(logger auth.Logger) ControllerOption {
	return func(c *Controller) *Controller {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithDebug(debug bool) ControllerOption {
	return func(c *Controller) *Controller {
		c.Debug = debug
		return c
	}
}

func NewController(opts ...ControllerOption) *Controller {
	_, logger := auth.ResolveLogger("auth.api", nil, nil)
	c := &Controller{
		Logger:     logger,
		ContextKey: sessionware.DefaultContextKey,
		Routes: &ControllerRoutes{
			Register:  "/auth/register",
			Login:     "/auth/login",
			Logout:    "/auth/logout",
			LogoutAll: "/auth/logout-all",
			Me:        "/auth/me",
			Sessions:  "/auth/sessions",
			Profile:   "/profile",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Provisioner == nil {
		panic("Missing Provisioner in auth controller...")
	}

	if c.Cookie.MaxAge <= 0 {
		c.Cookie.MaxAge = c.Provisioner.SessionTTL()
	}

	return c
}

// RegisterRoutes mounts the auth and profile endpoints. The session
// gateway must run before these handlers.
func RegisterRoutes(app fiber.Router, opts ...ControllerOption) *Controller {
	c := NewController(opts...)
	requireAuth := sessionware.RequireAuth(c.ContextKey)

	app.Post(c.Routes.Register, c.RegisterPost)
	app.Post(c.Routes.Login, c.LoginPost)
	app.Post(c.Routes.Logout, c.LogoutPost)
	app.Post(c.Routes.LogoutAll, requireAuth, c.LogoutAllPost)
	app.Get(c.Routes.Me, requireAuth, c.MeGet)
	app.Get(c.Routes.Sessions, requireAuth, c.SessionsGet)

	app.Get(c.Routes.Profile, requireAuth, c.ProfileGet)
	app.Post(c.Routes.Profile, requireAuth, c.ProfilePost)
	app.Patch(c.Routes.Profile, requireAuth, c.ProfilePatch)

	return c
}

func (a *Controller) RegisterPost(ctx *fiber.Ctx) error {
	payload := new(auth.RegisterUserMessage)
	if err := ctx.BodyParser(payload); err != nil {
		return a.writeError(ctx, malformedBody(err))
	}

	var result *auth.AuthResult
	handler := &auth.RegisterUserHandler{
		Provisioner: a.Provisioner,
		OnResult:    func(r *auth.AuthResult) { result = r },
	}
	if err := handler.Execute(ctx.UserContext(), *payload); err != nil {
		return a.writeError(ctx, err)
	}

	if a.Debug {
		a.Logger.Debug("user registered", "user", print.MaybePrettyJSON(result.User))
	}

	sessionware.SetSessionCookie(ctx, a.Cookie, result.Token)
	return ctx.Status(fiber.StatusCreated).JSON(authResponse(result))
}

func (a *Controller) LoginPost(ctx *fiber.Ctx) error {
	payload := new(auth.LoginInput)
	if err := ctx.BodyParser(payload); err != nil {
		return a.writeError(ctx, malformedBody(err))
	}
	payload.ClientKey = ctx.IP()

	result, err := a.Provisioner.Login(ctx.UserContext(), *payload)
	if err != nil {
		return a.writeError(ctx, err)
	}

	sessionware.SetSessionCookie(ctx, a.Cookie, result.Token)
	return ctx.JSON(authResponse(result))
}

// LogoutPost always succeeds, with or without a live session
func (a *Controller) LogoutPost(ctx *fiber.Ctx) error {
	if p, ok := sessionware.PrincipalFrom(ctx, a.ContextKey); ok {
		_ = a.Provisioner.Logout(ctx.UserContext(), p.SessionID)
	}
	sessionware.ClearSessionCookie(ctx, a.Cookie)
	return ctx.JSON(fiber.Map{"success": true})
}

func (a *Controller) LogoutAllPost(ctx *fiber.Ctx) error {
	p, _ := sessionware.PrincipalFrom(ctx, a.ContextKey)
	if err := a.Provisioner.LogoutAll(ctx.UserContext(), p.UserID); err != nil {
		return a.writeError(ctx, err)
	}
	sessionware.ClearSessionCookie(ctx, a.Cookie)
	return ctx.JSON(fiber.Map{"success": true})
}

func (a *Controller) MeGet(ctx *fiber.Ctx) error {
	p, _ := sessionware.PrincipalFrom(ctx, a.ContextKey)
	return ctx.JSON(principalResponse(p))
}

func (a *Controller) SessionsGet(ctx *fiber.Ctx) error {
	p, _ := sessionware.PrincipalFrom(ctx, a.ContextKey)
	sessions, err := a.Provisioner.ActiveSessions(ctx.UserContext(), p.UserID)
	if err != nil {
		return a.writeError(ctx, err)
	}

	out := make([]fiber.Map, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, fiber.Map{
			"id":         s.ID,
			"created_at": s.CreatedAt,
			"expires_at": s.ExpiresAt,
			"current":    s.ID == p.SessionID,
		})
	}
	return ctx.JSON(fiber.Map{"sessions": out})
}

func (a *Controller) ProfileGet(ctx *fiber.Ctx) error {
	p, _ := sessionware.PrincipalFrom(ctx, a.ContextKey)
	profile, err := a.Provisioner.GetProfile(ctx.UserContext(), p.UserID)
	if err != nil {
		return a.writeError(ctx, err)
	}
	return ctx.JSON(fiber.Map{"profile": profile})
}

func (a *Controller) ProfilePost(ctx *fiber.Ctx) error {
	p, _ := sessionware.PrincipalFrom(ctx, a.ContextKey)

	payload := new(auth.ProfileInput)
	if err := ctx.BodyParser(payload); err != nil {
		return a.writeError(ctx, malformedBody(err))
	}

	profile, err := a.Provisioner.CreateOrGetProfile(ctx.UserContext(), p.UserID, *payload)
	if err != nil {
		return a.writeError(ctx, err)
	}
	return ctx.JSON(fiber.Map{"profile": profile})
}

func (a *Controller) ProfilePatch(ctx *fiber.Ctx) error {
	p, _ := sessionware.PrincipalFrom(ctx, a.ContextKey)

	payload := new(auth.ProfilePatch)
	if err := ctx.BodyParser(payload); err != nil {
		return a.writeError(ctx, malformedBody(err))
	}

	var profile *auth.Profile
	handler := &auth.UpdateProfileHandler{
		Provisioner: a.Provisioner,
		OnResult:    func(p *auth.Profile) { profile = p },
	}
	msg := auth.UpdateProfileMessage{UserID: p.UserID, Patch: *payload}
	if err := handler.Execute(ctx.UserContext(), msg); err != nil {
		return a.writeError(ctx, err)
	}
	return ctx.JSON(fiber.Map{"profile": profile})
}

func authResponse(result *auth.AuthResult) fiber.Map {
	return fiber.Map{
		"user":       result.User,
		"profile":    result.Profile,
		"token":      result.Token,
		"expires_at": result.Session.ExpiresAt,
	}
}

func principalResponse(p *auth.Principal) fiber.Map {
	return fiber.Map{
		"user": fiber.Map{
			"id":       p.UserID,
			"username": p.Username,
			"role":     p.Role,
			"did":      p.DID,
		},
		"profile": p.Profile,
		"session": fiber.Map{
			"id":         p.SessionID,
			"expires_at": p.ExpiresAt,
		},
	}
}
