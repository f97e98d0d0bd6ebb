package domain

import (
	"errors"
	"slices"
)

const (
	GrantPassword          = "password"
	GrantClientCredentials = "client_credentials"
)

// Client IDs of the two channels allowed to manage users.
const (
	ClientCustomerWebApp     = "customer_web_app"
	ClientCustomerAccountAPI = "customer_account_api"
)

// API scopes. A granted API scope becomes a token audience.
const (
	ScopeAuthCustomerAPI = "customer_auth_customer_api"
	ScopeAuthStaffAPI    = "customer_auth_staff_api"
	ScopeReviewAPI       = "review_api"
	ScopeAccountAPI      = "customer_account_api"
	ScopeProductAPI      = "customer_product_api"
	ScopeOrderingAPI     = "customer_ordering_api"
	ScopeStaffProductAPI = "staff_product_api"
	ScopeInvoiceAPI      = "invoice_api"
)

// Identity scopes carry claims but never become an audience.
const (
	ScopeOpenID  = "openid"
	ScopeProfile = "profile"
	ScopeRoles   = "roles"
	ScopeID      = "id"
)

var apiScopes = []string{
	ScopeAuthCustomerAPI, ScopeAuthStaffAPI, ScopeReviewAPI, ScopeAccountAPI,
	ScopeProductAPI, ScopeOrderingAPI, ScopeStaffProductAPI, ScopeInvoiceAPI,
}

// IsAPIScope reports whether scope names a protected API.
func IsAPIScope(scope string) bool {
	return slices.Contains(apiScopes, scope)
}

// Token issuance errors, each mapping to an OAuth 2.0 error code.
var (
	ErrInvalidRequest       = errors.New("invalid_request")
	ErrInvalidClient        = errors.New("invalid_client")
	ErrUnauthorizedClient   = errors.New("unauthorized_client")
	ErrUnsupportedGrantType = errors.New("unsupported_grant_type")
	ErrInvalidScope         = errors.New("invalid_scope")
	ErrInvalidGrant         = errors.New("invalid_grant")
	ErrUserLockedOut        = errors.New("user is locked out")
)

// Client is an OAuth client allowed to request tokens.
type Client struct {
	ID         string
	Name       string
	SecretHash []byte
	GrantTypes []string
	Scopes     []string
}

func (c Client) AllowsGrant(grant string) bool {
	return slices.Contains(c.GrantTypes, grant)
}

func (c Client) AllowsScope(scope string) bool {
	return slices.Contains(c.Scopes, scope)
}

// DefaultClients lists the registered clients without secrets. Secrets are
// supplied by configuration at startup.
func DefaultClients() []Client {
	return []Client{
		{
			ID:         ClientCustomerWebApp,
			Name:       "Customer Web App",
			GrantTypes: []string{GrantPassword, GrantClientCredentials},
			Scopes: []string{
				ScopeAuthCustomerAPI, ScopeAuthStaffAPI,
				ScopeReviewAPI, ScopeAccountAPI, ScopeProductAPI, ScopeOrderingAPI,
				ScopeOpenID, ScopeProfile, ScopeRoles, ScopeID,
			},
		},
		{
			ID:         "review_api",
			Name:       "Customer Ratings API",
			GrantTypes: []string{GrantClientCredentials},
			Scopes:     []string{ScopeRoles, ScopeID},
		},
		{
			ID:         ClientCustomerAccountAPI,
			Name:       "Customer Account API",
			GrantTypes: []string{GrantClientCredentials},
			Scopes: []string{
				ScopeRoles, ScopeID, ScopeOrderingAPI,
				ScopeAuthCustomerAPI, ScopeAuthStaffAPI, ScopeReviewAPI,
			},
		},
		{
			ID:         "customer_product_api",
			Name:       "Customer Products API",
			GrantTypes: []string{GrantClientCredentials},
			Scopes:     []string{ScopeRoles, ScopeID, ScopeOrderingAPI},
		},
		{
			ID:         "customer_ordering_api",
			Name:       "Customer Orders API",
			GrantTypes: []string{GrantClientCredentials},
			Scopes: []string{
				ScopeRoles, ScopeID, ScopeAuthCustomerAPI, ScopeAccountAPI,
				ScopeInvoiceAPI, ScopeStaffProductAPI, ScopeReviewAPI,
			},
		},
	}
}
