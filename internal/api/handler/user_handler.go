package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/openmeet/openmeet-api/internal/core/domain"
	"github.com/openmeet/openmeet-api/internal/core/ports"
	"github.com/openmeet/openmeet-api/pkg/logger"
)

// RepairQueue accepts users whose email index row still has to be written.
type RepairQueue interface {
	Enqueue(task ports.IndexRepairTask) bool
}

type UserHandler struct {
	users   ports.UserRepository
	repairs RepairQueue
}

func NewUserHandler(users ports.UserRepository, repairs RepairQueue) *UserHandler {
	return &UserHandler{users: users, repairs: repairs}
}

// Register creates a new user account.
//
// @Summary      Register a new user
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "User registration details"
// @Success      201   {object}  userResponse
// @Success      202   {object}  userResponse
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      503   {object}  errorResponse
// @Router       /register [post]
func (h *UserHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	user, err := h.users.Create(ctx, toNewUser(req))

	var iwe *domain.IndexWriteError
	if errors.As(err, &iwe) {
		task := ports.IndexRepairTask{UserID: iwe.UserID, Email: iwe.Email}
		if !h.repairs.Enqueue(task) {
			return err
		}
		logger.FromContext(ctx).Warn().Stringer("user_id", iwe.UserID).Msg("user created without email index, repair queued")
		return c.JSON(http.StatusAccepted, userResponse{
			User:         &domain.User{ID: iwe.UserID, Username: req.Username, Email: iwe.Email},
			IndexPending: true,
		})
	}
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, userResponse{User: user})
}

// Login authenticates a user and returns a JWT token.
//
// @Summary      Login
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  loginResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /login [post]
func (h *UserHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	token, user, err := h.users.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, loginResponse{Token: token, User: user})
}

// List returns every user. The underlying read is an unbounded table scan.
//
// @Summary      List users
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   domain.User
// @Failure      401  {object}  errorResponse
// @Router       /users [get]
func (h *UserHandler) List(c echo.Context) error {
	users, err := h.users.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, users)
}

// Get returns one user by id.
//
// @Summary      Get a user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User id"
// @Success      200  {object}  domain.User
// @Failure      400  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /users/{id} [get]
func (h *UserHandler) Get(c echo.Context) error {
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	user, err := h.users.GetByID(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// WhoAmI resolves a user through the email index.
//
// @Summary      Look a user up by email
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        email  path      string  true  "Email address"
// @Success      200    {object}  domain.User
// @Failure      404    {object}  errorResponse
// @Router       /whoami/{email} [get]
func (h *UserHandler) WhoAmI(c echo.Context) error {
	user, err := h.users.GetByEmail(c.Request().Context(), c.Param("email"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// Delete removes a user and its email index row.
//
// @Summary      Delete a user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User id"
// @Success      200  {object}  messageResponse
// @Failure      404  {object}  errorResponse
// @Router       /users/{id} [delete]
func (h *UserHandler) Delete(c echo.Context) error {
	actor, err := ctxSubject(c)
	if err != nil {
		return err
	}
	id, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	user, err := h.users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := h.users.Delete(ctx, id, user.Email); err != nil {
		return err
	}

	logger.FromContext(ctx).Info().Stringer("user_id", id).Stringer("actor", actor).Msg("user deleted")
	return c.JSON(http.StatusOK, messageResponse{Message: "user deleted"})
}
