package handler

import (
	"github.com/thamco/customer-identity/internal/core/ports"
)

// --- HTTP request → facade input ---

func toUserPutModel(req *userPutRequest) ports.UserPutModel {
	return ports.UserPutModel{
		Email:    req.Email,
		Password: req.Password,
	}
}

func toTokenRequest(req tokenRequest) ports.TokenRequest {
	return ports.TokenRequest{
		GrantType:    req.GrantType,
		ClientID:     req.ClientID,
		ClientSecret: req.ClientSecret,
		Username:     req.Username,
		Password:     req.Password,
		Scope:        req.Scope,
	}
}

// --- Facade output → HTTP response ---

func fromUserGetModel(m *ports.UserGetModel) userGetResponse {
	return userGetResponse{
		ID:         m.ID,
		CustomerID: m.CustomerID,
		UserName:   m.UserName,
		Email:      m.Email,
		Roles:      nonNil(m.Roles),
	}
}

func fromUserModel(m *ports.UserModel, roles []string) userGetResponse {
	return userGetResponse{
		ID:         m.ID,
		CustomerID: m.CustomerID,
		UserName:   m.UserName,
		Email:      m.Email,
		Roles:      nonNil(roles),
	}
}

func fromTokenResult(r *ports.TokenResult) tokenResponse {
	return tokenResponse{
		AccessToken: r.AccessToken,
		TokenType:   r.TokenType,
		ExpiresIn:   int64(r.ExpiresIn.Seconds()),
		Scope:       r.Scope,
	}
}

func nonNil(roles []string) []string {
	if roles == nil {
		return []string{}
	}
	return roles
}
