package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/opsbridge/tokengate/internal/core/ports"
)

// UserHandler exposes account provisioning to operators.
type UserHandler struct {
	service ports.UserService
	log     zerolog.Logger
}

func NewUserHandler(service ports.UserService, log zerolog.Logger) *UserHandler {
	return &UserHandler{service: service, log: log}
}

type createUserRequest struct {
	Username string   `json:"username" validate:"required,max=128,excludes=:"`
	Password string   `json:"password" validate:"required,min=8,max=72"`
	Roles    []string `json:"roles" validate:"omitempty,dive,required,max=64"`
	// IsActive defaults to true when omitted.
	IsActive *bool `json:"isActive"`
}

type setActiveRequest struct {
	IsActive *bool `json:"isActive" validate:"required"`
}

type activeResponse struct {
	Username string `json:"username"`
	IsActive bool   `json:"isActive"`
}

// Create provisions a user in this instance's application type.
//
// @Summary      Create a user
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createUserRequest  true  "User details"
// @Success      201   {object}  domain.User
// @Failure      400   {object}  ErrorResponse
// @Failure      401   {object}  ErrorResponse
// @Failure      403   {object}  ErrorResponse
// @Failure      409   {object}  ErrorResponse
// @Router       /users [post]
func (h *UserHandler) Create(c echo.Context) error {
	var req createUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	user, err := h.service.Create(c.Request().Context(), ports.CreateUserInput{
		Username: req.Username,
		Password: req.Password,
		Roles:    req.Roles,
		IsActive: active,
	})
	if err != nil {
		return err
	}

	h.audit(c, "user_create", user.Username)
	return c.JSON(http.StatusCreated, user)
}

// Get returns a user without its password hash.
//
// @Summary      Get a user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        username  path      string  true  "Username"
// @Success      200       {object}  domain.User
// @Failure      401       {object}  ErrorResponse
// @Failure      403       {object}  ErrorResponse
// @Failure      404       {object}  ErrorResponse
// @Router       /users/{username} [get]
func (h *UserHandler) Get(c echo.Context) error {
	user, err := h.service.Get(c.Request().Context(), c.Param("username"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// SetActive enables or disables a user. Tokens already issued remain valid
// until they expire.
//
// @Summary      Activate or deactivate a user
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        username  path      string            true  "Username"
// @Param        body      body      setActiveRequest  true  "Activation flag"
// @Success      200       {object}  activeResponse
// @Failure      400       {object}  ErrorResponse
// @Failure      401       {object}  ErrorResponse
// @Failure      403       {object}  ErrorResponse
// @Failure      404       {object}  ErrorResponse
// @Router       /users/{username}/active [patch]
func (h *UserHandler) SetActive(c echo.Context) error {
	var req setActiveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	username := c.Param("username")
	if err := h.service.SetActive(c.Request().Context(), username, *req.IsActive); err != nil {
		return err
	}

	h.audit(c, "user_set_active", username)
	return c.JSON(http.StatusOK, activeResponse{Username: username, IsActive: *req.IsActive})
}

func (h *UserHandler) audit(c echo.Context, action, target string) {
	actor := ""
	if claims, err := ctxClaims(c); err == nil {
		actor = claims.Username
	}
	h.log.Info().
		Str("action", action).
		Str("actor", actor).
		Str("target", target).
		Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
		Msg("user administration")
}
