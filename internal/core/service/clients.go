package service

import (
	"fmt"
	"sort"

	"golang.org/x/crypto/bcrypt"

	"github.com/thamco/customer-identity/internal/core/domain"
)

// ClientRegistry is the immutable set of OAuth clients built at startup.
type ClientRegistry struct {
	clients map[string]domain.Client
}

// NewClientRegistry hashes the configured secret of every client in defs.
// Clients without a configured secret are left out and cannot authenticate.
func NewClientRegistry(defs []domain.Client, secrets map[string]string) (*ClientRegistry, error) {
	reg := &ClientRegistry{clients: make(map[string]domain.Client, len(defs))}
	for _, c := range defs {
		secret, ok := secrets[c.ID]
		if !ok || secret == "" {
			continue
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("client %s: hash secret: %w", c.ID, err)
		}
		c.SecretHash = hash
		reg.clients[c.ID] = c
	}
	return reg, nil
}

// Authenticate returns the client when id and secret match.
func (r *ClientRegistry) Authenticate(id, secret string) (domain.Client, error) {
	c, ok := r.clients[id]
	if !ok || secret == "" {
		return domain.Client{}, domain.ErrInvalidClient
	}
	if bcrypt.CompareHashAndPassword(c.SecretHash, []byte(secret)) != nil {
		return domain.Client{}, domain.ErrInvalidClient
	}
	return c, nil
}

// IDs returns the registered client ids in sorted order.
func (r *ClientRegistry) IDs() []string {
	ids := make([]string, 0, len(r.clients))
	for id := range r.clients {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
