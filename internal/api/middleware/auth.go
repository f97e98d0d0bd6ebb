package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// Context keys set by Auth.
const (
	CtxSubject    = "sub"
	CtxClientID   = "client_id"
	CtxAudience   = "aud"
	CtxRoles      = "role"
	CtxCustomerID = "customer_id"
)

// Auth validates the bearer JWT and injects its claims into the context.
// issuer is enforced when non-empty.
func Auth(jwtSecret, issuer string) echo.MiddlewareFunc {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	parser := jwt.NewParser(opts...)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			claims := jwt.MapClaims{}
			tkn, err := parser.ParseWithClaims(parts[1], claims, func(*jwt.Token) (interface{}, error) {
				return []byte(jwtSecret), nil
			})
			if err != nil || !tkn.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			sub, _ := claims.GetSubject()
			aud, _ := claims.GetAudience()
			clientID, _ := claims["client_id"].(string)
			customerID, _ := claims["id"].(string)

			c.Set(CtxSubject, sub)
			c.Set(CtxClientID, clientID)
			c.Set(CtxAudience, []string(aud))
			c.Set(CtxRoles, stringList(claims["role"]))
			c.Set(CtxCustomerID, customerID)

			return next(c)
		}
	}
}

// stringList reads a claim that may be a single string or an array.
func stringList(v interface{}) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return []string{}
}
