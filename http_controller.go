package auth

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
)

// APIControllerRoutes are the endpoint paths the controller binds.
type APIControllerRoutes struct {
	Signup   string
	Login    string
	Logout   string
	Validate string
}

// APIController is the JSON adapter over SessionManager. It owns transport
// translation only: payload parsing, validation, and the error-to-status
// mapping. Business invariants live in the manager.
type APIController struct {
	Debug    bool
	Logger   Logger
	Sessions SessionAuthenticator
	Routes   *APIControllerRoutes
}

type APIControllerOption func(*APIController) *APIController

func WithControllerLogger(logger Logger) APIControllerOption {
	return func(c *APIController) *APIController {
		c.Logger = logger
		return c
	}
}

func WithSessionManager(sessions SessionAuthenticator) APIControllerOption {
	return func(c *APIController) *APIController {
		c.Sessions = sessions
		return c
	}
}

func WithControllerDebug(debug bool) APIControllerOption {
	return func(c *APIController) *APIController {
		c.Debug = debug
		return c
	}
}

func NewAPIController(opts ...APIControllerOption) *APIController {
	c := &APIController{
		Logger: defLogger{},
		Routes: &APIControllerRoutes{
			Signup:   "/signup",
			Login:    "/login",
			Logout:   "/logout",
			Validate: "/validate",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Sessions == nil {
		panic("Missing SessionManager in api controller...")
	}

	return c
}

// RegisterAPIRoutes binds the four session endpoints on the app.
func RegisterAPIRoutes(app *fiber.App, opts ...APIControllerOption) *APIController {
	controller := NewAPIController(opts...)

	app.Post(controller.Routes.Signup, controller.SignupPost)
	app.Post(controller.Routes.Login, controller.LoginPost)
	app.Post(controller.Routes.Logout, controller.LogoutPost)
	app.Post(controller.Routes.Validate, controller.ValidatePost)

	return controller
}

// SignupRequest payload
type SignupRequest struct {
	Name     string `form:"name" json:"name"`
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r SignupRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(5, 100)),
	)
}

// SignupResponse echoes the created account. There is no password field of
// any kind here; the hash must never cross this boundary.
type SignupResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (a *APIController) SignupPost(ctx *fiber.Ctx) error {
	payload := new(SignupRequest)

	if err := ctx.BodyParser(payload); err != nil {
		a.Logger.Error("signup parse payload", "error", err)
		return a.jsonError(ctx, fiber.StatusBadRequest, "invalid request body")
	}

	if err := payload.Validate(); err != nil {
		return a.jsonError(ctx, fiber.StatusBadRequest, err.Error())
	}

	user, err := a.Sessions.Signup(ctx.UserContext(), payload.Name, payload.Email, payload.Password)
	if err != nil {
		return a.handleError(ctx, err)
	}

	return ctx.Status(fiber.StatusCreated).JSON(SignupResponse{
		ID:    user.ID.String(),
		Name:  user.Name,
		Email: user.Email,
	})
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

// LoginResponse carries the minted bearer token.
type LoginResponse struct {
	Token string `json:"token"`
}

func (a *APIController) LoginPost(ctx *fiber.Ctx) error {
	payload := new(LoginRequest)

	if err := ctx.BodyParser(payload); err != nil {
		a.Logger.Error("login parse payload", "error", err)
		return a.jsonError(ctx, fiber.StatusBadRequest, "invalid request body")
	}

	if err := payload.Validate(); err != nil {
		return a.jsonError(ctx, fiber.StatusBadRequest, err.Error())
	}

	token, err := a.Sessions.Login(ctx.UserContext(), payload.Email, payload.Password)
	if err != nil {
		// Login failures are a 400 regardless of which factor failed, so
		// the status code cannot be used to enumerate accounts.
		if errors.Is(err, ErrInvalidCredentials) {
			return a.jsonError(ctx, fiber.StatusBadRequest, ErrInvalidCredentials.Message)
		}
		return a.handleError(ctx, err)
	}

	return ctx.Status(fiber.StatusOK).JSON(LoginResponse{Token: token})
}

// LogoutRequest payload
type LogoutRequest struct {
	Token string `form:"token" json:"token"`
}

func (a *APIController) LogoutPost(ctx *fiber.Ctx) error {
	payload := new(LogoutRequest)

	if err := ctx.BodyParser(payload); err != nil {
		// Logout is an intent signal; a body we cannot parse carries no
		// token worth revoking.
		return ctx.SendStatus(fiber.StatusNoContent)
	}

	if err := a.Sessions.Logout(ctx.UserContext(), payload.Token); err != nil {
		// Ledger unavailability is the one failure we surface: returning
		// 204 here would claim a revocation that never happened.
		return a.handleError(ctx, err)
	}

	return ctx.SendStatus(fiber.StatusNoContent)
}

func (a *APIController) ValidatePost(ctx *fiber.Ctx) error {
	raw := BearerToken(ctx.Get(fiber.HeaderAuthorization))

	if _, err := a.Sessions.Validate(ctx.UserContext(), raw); err != nil {
		// Only a verdict about the token itself reads as "not valid". A
		// ledger or store outage means we could not reach a verdict, and
		// answering false would let callers mistake downtime for
		// revocation.
		var rich *errors.Error
		if !errors.As(err, &rich) {
			return a.handleError(ctx, err)
		}
		switch rich.Category {
		case errors.CategoryAuth, errors.CategoryNotFound:
		default:
			return a.handleError(ctx, err)
		}

		if a.Debug {
			a.Logger.Debug("validate rejected token", "error", print.MaybePrettyJSON(err))
		}
		return ctx.Status(fiber.StatusUnauthorized).JSON(false)
	}

	return ctx.Status(fiber.StatusOK).JSON(true)
}

// BearerToken strips an optional "Bearer " scheme prefix off an
// Authorization header value.
func BearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) >= 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return header
}

// handleError translates the structured taxonomy into HTTP statuses. Raw
// storage and crypto details stay in the logs; clients only see the coarse
// category message.
func (a *APIController) handleError(ctx *fiber.Ctx, err error) error {
	var rich *errors.Error
	if !errors.As(err, &rich) {
		rich = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred")
	}

	a.Logger.Error(
		"request error",
		"category", rich.Category,
		"text_code", rich.TextCode,
		"error", rich.Message,
		"path", ctx.Path(),
	)

	if a.Debug {
		a.Logger.Debug("request error detail", "metadata", print.MaybePrettyJSON(rich.Metadata))
	}

	switch rich.Category {
	case errors.CategoryConflict:
		return a.jsonError(ctx, fiber.StatusConflict, rich.Message)
	case errors.CategoryValidation, errors.CategoryBadInput:
		return a.jsonError(ctx, fiber.StatusBadRequest, rich.Message)
	case errors.CategoryAuth:
		return a.jsonError(ctx, fiber.StatusUnauthorized, rich.Message)
	case errors.CategoryNotFound:
		return a.jsonError(ctx, fiber.StatusNotFound, rich.Message)
	case errors.CategoryOperation:
		return a.jsonError(ctx, fiber.StatusServiceUnavailable, "service temporarily unavailable")
	default:
		return a.jsonError(ctx, fiber.StatusInternalServerError, "internal server error")
	}
}

func (a *APIController) jsonError(ctx *fiber.Ctx, status int, message string) error {
	return ctx.Status(status).JSON(fiber.Map{
		"error": message,
	})
}
