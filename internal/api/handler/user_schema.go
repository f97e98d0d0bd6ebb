package handler

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Request / Response types ---

// userPutRequest is the body of both create and update.
type userPutRequest struct {
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

type userGetResponse struct {
	ID         string   `json:"id"`
	CustomerID int      `json:"customerId"`
	UserName   string   `json:"userName"`
	Email      string   `json:"email"`
	Roles      []string `json:"roles"`
}

type rolesResponse struct {
	Roles []string `json:"roles"`
}

// tokenRequest is the form body of POST /connect/token.
type tokenRequest struct {
	GrantType    string `form:"grant_type"`
	ClientID     string `form:"client_id"`
	ClientSecret string `form:"client_secret"`
	Username     string `form:"username"`
	Password     string `form:"password"`
	Scope        string `form:"scope"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	Scope       string `json:"scope,omitempty"`
}

// oauthError is the RFC 6749 section 5.2 error body.
type oauthError struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}
