package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/thamco/customer-identity/internal/core/ports"
)

// UserHandler handles HTTP requests for user management.
type UserHandler struct {
	users ports.UserRepository
}

func NewUserHandler(users ports.UserRepository) *UserHandler {
	return &UserHandler{users: users}
}

// Create handles POST /users.
//
// @Summary      Create a user
// @Description  Creates a user whose username is its email and assigns the Customer role.
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      userPutRequest   true  "Email and password"
// @Success      200   {object}  userGetResponse
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /users [post]
func (h *UserHandler) Create(c echo.Context) error {
	req, err := bindUserPut(c)
	if err != nil {
		return err
	}

	created, err := h.users.NewUser(c.Request().Context(), toUserPutModel(req))
	if err != nil {
		return err
	}
	if created == nil {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "user could not be created"})
	}

	return c.JSON(http.StatusOK, fromUserGetModel(created))
}

// Update handles PUT /users/:id.
//
// @Summary      Update a user
// @Description  Replaces the email (and username) of a user and rotates its password.
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string          true  "User id"
// @Param        body  body      userPutRequest  true  "Email and password"
// @Success      200   {object}  userGetResponse
// @Failure      400   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /users/{id} [put]
func (h *UserHandler) Update(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "id is required"})
	}
	req, err := bindUserPut(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	ok, err := h.users.EditUser(ctx, toUserPutModel(req), id)
	if err != nil {
		return err
	}
	if !ok {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "user not found or could not be updated"})
	}

	user, err := h.users.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if user == nil {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "user not found"})
	}
	roles, err := h.users.GetRoles(ctx, id)
	if err != nil {
		return err
	}

	resp := fromUserModel(user, roles)
	resp.Email = req.Email
	resp.UserName = req.Email
	return c.JSON(http.StatusOK, resp)
}

// Delete handles DELETE /users/:id.
//
// @Summary      Delete a user
// @Tags         users
// @Security     BearerAuth
// @Param        id   path  string  true  "User id"
// @Success      200
// @Failure      400  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Failure      500  {object}  errorResponse
// @Router       /users/{id} [delete]
func (h *UserHandler) Delete(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "id is required"})
	}

	ok, err := h.users.DeleteUser(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if !ok {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "user not found or could not be deleted"})
	}
	return c.NoContent(http.StatusOK)
}

// Get handles GET /users/:id.
//
// @Summary      Get a user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User id"
// @Success      200  {object}  userGetResponse
// @Failure      404  {object}  errorResponse
// @Failure      500  {object}  errorResponse
// @Router       /users/{id} [get]
func (h *UserHandler) Get(c echo.Context) error {
	id := c.Param("id")
	ctx := c.Request().Context()

	user, err := h.users.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if user == nil {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "user not found"})
	}
	roles, err := h.users.GetRoles(ctx, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, fromUserModel(user, roles))
}

// Roles handles GET /users/:id/roles.
//
// @Summary      List the roles of a user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User id"
// @Success      200  {object}  rolesResponse
// @Failure      404  {object}  errorResponse
// @Failure      500  {object}  errorResponse
// @Router       /users/{id}/roles [get]
func (h *UserHandler) Roles(c echo.Context) error {
	id := c.Param("id")
	ctx := c.Request().Context()

	user, err := h.users.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if user == nil {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "user not found"})
	}
	roles, err := h.users.GetRoles(ctx, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, rolesResponse{Roles: nonNil(roles)})
}

// bindUserPut decodes and validates the request body. An absent body (empty
// or JSON null) is a 400, missing fields are a 422.
func bindUserPut(c echo.Context) (*userPutRequest, error) {
	var req *userPutRequest
	if err := (&echo.DefaultBinder{}).BindBody(c, &req); err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if req == nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "request body is required")
	}
	if err := c.Validate(req); err != nil {
		return nil, echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	return req, nil
}
