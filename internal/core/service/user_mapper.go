package service

import (
	"github.com/thamco/customer-identity/internal/core/domain"
	"github.com/thamco/customer-identity/internal/core/ports"
)

// --- Store record → internal models ---

func toUserModel(u *domain.User) ports.UserModel {
	return ports.UserModel{
		ID:               u.ID,
		CustomerID:       u.CustomerID,
		UserName:         u.UserName,
		Email:            u.Email,
		ConcurrencyStamp: u.ConcurrencyStamp,
	}
}

func toGetModel(u *domain.User, roles []string) *ports.UserGetModel {
	return &ports.UserGetModel{
		ID:         u.ID,
		CustomerID: u.CustomerID,
		UserName:   u.UserName,
		Email:      u.Email,
		Roles:      roles,
	}
}

// --- Internal model → store record ---

func toDomainUser(m ports.UserModel) *domain.User {
	return &domain.User{
		ID:               m.ID,
		CustomerID:       m.CustomerID,
		UserName:         m.UserName,
		Email:            m.Email,
		ConcurrencyStamp: m.ConcurrencyStamp,
	}
}
