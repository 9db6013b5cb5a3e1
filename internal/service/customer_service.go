package service

import (
	"context"
	"errors"

	"omnichan/backend/internal/models"
	"omnichan/backend/internal/repository"
)

var ErrCustomerNotFound = errors.New("customer not found")

// CustomerService exposes customer profiles for the dashboard
type CustomerService struct {
	customers repository.CustomerRepository
}

func NewCustomerService(customers repository.CustomerRepository) *CustomerService {
	return &CustomerService{customers: customers}
}

func (s *CustomerService) List(ctx context.Context, userID uint, limit, offset int) ([]models.Customer, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.customers.ListByUser(ctx, userID, limit, offset)
}

func (s *CustomerService) Get(ctx context.Context, userID, id uint) (*models.Customer, error) {
	customer, err := s.customers.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}
	if customer.UserID != userID {
		return nil, ErrCustomerNotFound
	}
	return customer, nil
}

// Update applies the profile fields an agent can edit
func (s *CustomerService) Update(ctx context.Context, userID, id uint, req *models.UpdateCustomerRequest) (*models.Customer, error) {
	customer, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if req.Name != "" {
		customer.Name = req.Name
	}
	if req.Email != "" {
		customer.Email = req.Email
	}
	if req.Phone != "" {
		customer.Phone = req.Phone
	}
	if req.Segment != "" {
		customer.Segment = req.Segment
	}

	if err := s.customers.Update(ctx, customer); err != nil {
		return nil, err
	}
	return customer, nil
}
