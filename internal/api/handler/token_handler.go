package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/thamco/customer-identity/internal/core/domain"
	"github.com/thamco/customer-identity/internal/core/ports"
)

// TokenHandler serves the OAuth 2.0 token endpoint.
type TokenHandler struct {
	tokens ports.TokenService
}

func NewTokenHandler(tokens ports.TokenService) *TokenHandler {
	return &TokenHandler{tokens: tokens}
}

// Issue handles POST /connect/token.
//
// @Summary      Issue an access token
// @Description  Supports the password and client_credentials grants. Client credentials may be sent in the form or with HTTP Basic authentication.
// @Tags         auth
// @Accept       x-www-form-urlencoded
// @Produce      json
// @Param        grant_type     formData  string  true   "password or client_credentials"
// @Param        client_id      formData  string  false  "Client id"
// @Param        client_secret  formData  string  false  "Client secret"
// @Param        username       formData  string  false  "Resource owner email (password grant)"
// @Param        password       formData  string  false  "Resource owner password (password grant)"
// @Param        scope          formData  string  false  "Space separated scopes"
// @Success      200            {object}  tokenResponse
// @Failure      400            {object}  oauthError
// @Failure      401            {object}  oauthError
// @Failure      500            {object}  errorResponse
// @Router       /connect/token [post]
func (h *TokenHandler) Issue(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	c.Response().Header().Set("Pragma", "no-cache")

	var req tokenRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, oauthError{Error: domain.ErrInvalidRequest.Error(), Description: "malformed token request"})
	}
	basic := false
	if id, secret, ok := c.Request().BasicAuth(); ok {
		req.ClientID, req.ClientSecret = id, secret
		basic = true
	}
	if req.GrantType == "" {
		return c.JSON(http.StatusBadRequest, oauthError{Error: domain.ErrInvalidRequest.Error(), Description: "grant_type is required"})
	}

	res, err := h.tokens.Issue(c.Request().Context(), toTokenRequest(req))
	if err != nil {
		code, status, ok := oauthFailure(err)
		if !ok {
			return err
		}
		if status == http.StatusUnauthorized && basic {
			c.Response().Header().Set(echo.HeaderWWWAuthenticate, `Basic realm="token"`)
		}
		return c.JSON(status, oauthError{Error: code, Description: err.Error()})
	}

	return c.JSON(http.StatusOK, fromTokenResult(res))
}

// oauthFailure maps a token error to its RFC 6749 code and HTTP status.
// ok is false for faults.
func oauthFailure(err error) (code string, status int, ok bool) {
	switch {
	case errors.Is(err, domain.ErrInvalidClient):
		return domain.ErrInvalidClient.Error(), http.StatusUnauthorized, true
	case errors.Is(err, domain.ErrUserLockedOut):
		return domain.ErrInvalidGrant.Error(), http.StatusBadRequest, true
	}
	for _, known := range []error{
		domain.ErrInvalidRequest,
		domain.ErrUnauthorizedClient,
		domain.ErrUnsupportedGrantType,
		domain.ErrInvalidScope,
		domain.ErrInvalidGrant,
	} {
		if errors.Is(err, known) {
			return known.Error(), http.StatusBadRequest, true
		}
	}
	return "", 0, false
}
