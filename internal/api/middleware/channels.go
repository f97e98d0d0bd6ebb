package middleware

import (
	"slices"

	"github.com/labstack/echo/v4"

	"github.com/thamco/customer-identity/internal/core/domain"
)

// Channel is an authorization policy: a token passes when it was issued to
// ClientID and carries Audience.
type Channel struct {
	ClientID string
	Audience string
}

var (
	CustomerWebApp  = Channel{ClientID: domain.ClientCustomerWebApp, Audience: domain.ScopeAuthCustomerAPI}
	StaffAccountAPI = Channel{ClientID: domain.ClientCustomerAccountAPI, Audience: domain.ScopeAuthStaffAPI}
)

// Channels admits requests whose token matches at least one of allowed and
// returns domain.ErrForbidden otherwise. It must run after Auth.
func Channels(allowed ...Channel) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			clientID, _ := c.Get(CtxClientID).(string)
			aud, _ := c.Get(CtxAudience).([]string)

			for _, ch := range allowed {
				if clientID == ch.ClientID && slices.Contains(aud, ch.Audience) {
					return next(c)
				}
			}
			return domain.ErrForbidden
		}
	}
}
