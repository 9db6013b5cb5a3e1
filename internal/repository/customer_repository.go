package repository

import (
	"context"
	"errors"

	"omnichan/backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CustomerRepository interface {
	FindByFacebookID(ctx context.Context, userID uint, facebookID string) (*models.Customer, error)
	FindByID(ctx context.Context, id uint) (*models.Customer, error)
	Create(ctx context.Context, customer *models.Customer) error
	Update(ctx context.Context, customer *models.Customer) error
	ListByUser(ctx context.Context, userID uint, limit, offset int) ([]models.Customer, error)
}

type GormCustomerRepository struct {
	db *gorm.DB
}

func NewGormCustomerRepository(db *gorm.DB) *GormCustomerRepository {
	return &GormCustomerRepository{db: db}
}

func (r *GormCustomerRepository) FindByFacebookID(ctx context.Context, userID uint, facebookID string) (*models.Customer, error) {
	var customer models.Customer
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND facebook_id = ?", userID, facebookID).
		First(&customer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &customer, nil
}

func (r *GormCustomerRepository) FindByID(ctx context.Context, id uint) (*models.Customer, error) {
	var customer models.Customer
	err := r.db.WithContext(ctx).First(&customer, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &customer, nil
}

// Create inserts the customer. Two webhook deliveries for the same sender can
// race here; the composite unique index on (user_id, facebook_id) plus
// DO NOTHING keeps a single row, and the loser re-fetches the winner's row.
func (r *GormCustomerRepository) Create(ctx context.Context, customer *models.Customer) error {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(customer)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		existing, err := r.FindByFacebookID(ctx, customer.UserID, customer.FacebookID)
		if err != nil {
			return err
		}
		*customer = *existing
	}
	return nil
}

func (r *GormCustomerRepository) Update(ctx context.Context, customer *models.Customer) error {
	return r.db.WithContext(ctx).Save(customer).Error
}

func (r *GormCustomerRepository) ListByUser(ctx context.Context, userID uint, limit, offset int) ([]models.Customer, error) {
	var customers []models.Customer
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&customers).Error
	return customers, err
}
