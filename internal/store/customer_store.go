package store

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/worklog/internal/model"
)

// CustomerStore owns customers.json: a full in-memory map of customers keyed
// by id, rewritten to disk on every mutation.
type CustomerStore struct {
	path      string
	customers map[string]model.Customer
}

// NewCustomerStore creates an empty store bound to path. Nothing is written
// until the first mutation.
func NewCustomerStore(path string) *CustomerStore {
	return &CustomerStore{path: path, customers: map[string]model.Customer{}}
}

// OpenCustomerStore loads the store file at path. A missing file yields an
// empty store; an unreadable one yields a *CorruptError.
func OpenCustomerStore(path string) (*CustomerStore, error) {
	customers, err := readCollection[model.Customer](path)
	if err != nil {
		return nil, err
	}
	return &CustomerStore{path: path, customers: customers}, nil
}

// Create inserts a new customer with a generated id and returns it.
func (s *CustomerStore) Create(name, email, phone, address string) (model.Customer, error) {
	if strings.TrimSpace(name) == "" {
		return model.Customer{}, fmt.Errorf("customer name must not be empty")
	}

	now := time.Now().UTC()
	c := model.Customer{
		ID:        uuid.New().String(),
		Name:      name,
		Email:     email,
		Phone:     phone,
		Address:   address,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.customers[c.ID] = c
	if err := s.save(); err != nil {
		delete(s.customers, c.ID)
		return model.Customer{}, err
	}
	return c, nil
}

// Get returns the customer with the given id.
func (s *CustomerStore) Get(id string) (model.Customer, bool) {
	c, ok := s.customers[id]
	return c, ok
}

// List returns all customers in undefined order. Callers sort as needed.
func (s *CustomerStore) List() []model.Customer {
	out := make([]model.Customer, 0, len(s.customers))
	for _, c := range s.customers {
		out = append(out, c)
	}
	return out
}

// Update applies the non-nil patch fields to the customer and persists.
// Returns ErrNotFound when the id is absent.
func (s *CustomerStore) Update(id string, patch model.CustomerPatch) (model.Customer, error) {
	prev, ok := s.customers[id]
	if !ok {
		return model.Customer{}, fmt.Errorf("customer %s: %w", id, ErrNotFound)
	}
	c := prev

	if patch.Name != nil {
		if strings.TrimSpace(*patch.Name) == "" {
			return model.Customer{}, fmt.Errorf("customer name must not be empty")
		}
		c.Name = *patch.Name
	}
	if patch.Email != nil {
		c.Email = *patch.Email
	}
	if patch.Phone != nil {
		c.Phone = *patch.Phone
	}
	if patch.Address != nil {
		c.Address = *patch.Address
	}
	c.UpdatedAt = time.Now().UTC()

	s.customers[id] = c
	if err := s.save(); err != nil {
		s.customers[id] = prev
		return model.Customer{}, err
	}
	return c, nil
}

// Delete removes the customer if present and reports whether a removal
// occurred. Referential checks live one level up, in Stores.
func (s *CustomerStore) Delete(id string) (bool, error) {
	c, ok := s.customers[id]
	if !ok {
		return false, nil
	}
	delete(s.customers, id)
	if err := s.save(); err != nil {
		s.customers[id] = c
		return false, err
	}
	return true, nil
}

func (s *CustomerStore) save() error {
	return writeCollection(s.path, s.customers)
}
