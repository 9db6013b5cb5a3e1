package repository

import (
	"context"
	"errors"

	"omnichan/backend/internal/models"

	"gorm.io/gorm"
)

type IntegrationRepository interface {
	FindActiveByPage(ctx context.Context, platform, pageID string) (*models.Integration, error)
	FindActiveForUser(ctx context.Context, userID uint, platform, pageID string) (*models.Integration, error)
	FindByID(ctx context.Context, id uint) (*models.Integration, error)
	FindByUserAndPage(ctx context.Context, userID uint, platform, pageID string) (*models.Integration, error)
	Create(ctx context.Context, integration *models.Integration) error
	Update(ctx context.Context, integration *models.Integration) error
	SetActive(ctx context.Context, id uint, active bool) error
	ListByUser(ctx context.Context, userID uint) ([]models.Integration, error)
}

type GormIntegrationRepository struct {
	db *gorm.DB
}

func NewGormIntegrationRepository(db *gorm.DB) *GormIntegrationRepository {
	return &GormIntegrationRepository{db: db}
}

func (r *GormIntegrationRepository) first(ctx context.Context, query string, args ...interface{}) (*models.Integration, error) {
	var integration models.Integration
	err := r.db.WithContext(ctx).Where(query, args...).First(&integration).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &integration, nil
}

func (r *GormIntegrationRepository) FindActiveByPage(ctx context.Context, platform, pageID string) (*models.Integration, error) {
	return r.first(ctx, "platform = ? AND platform_page_id = ? AND is_active = ?", platform, pageID, true)
}

func (r *GormIntegrationRepository) FindActiveForUser(ctx context.Context, userID uint, platform, pageID string) (*models.Integration, error) {
	return r.first(ctx, "user_id = ? AND platform = ? AND platform_page_id = ? AND is_active = ?", userID, platform, pageID, true)
}

func (r *GormIntegrationRepository) FindByID(ctx context.Context, id uint) (*models.Integration, error) {
	var integration models.Integration
	err := r.db.WithContext(ctx).First(&integration, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &integration, nil
}

func (r *GormIntegrationRepository) FindByUserAndPage(ctx context.Context, userID uint, platform, pageID string) (*models.Integration, error) {
	return r.first(ctx, "user_id = ? AND platform = ? AND platform_page_id = ?", userID, platform, pageID)
}

func (r *GormIntegrationRepository) Create(ctx context.Context, integration *models.Integration) error {
	return r.db.WithContext(ctx).Create(integration).Error
}

func (r *GormIntegrationRepository) Update(ctx context.Context, integration *models.Integration) error {
	return r.db.WithContext(ctx).Save(integration).Error
}

func (r *GormIntegrationRepository) SetActive(ctx context.Context, id uint, active bool) error {
	result := r.db.WithContext(ctx).
		Model(&models.Integration{}).
		Where("id = ?", id).
		Update("is_active", active)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormIntegrationRepository) ListByUser(ctx context.Context, userID uint) ([]models.Integration, error) {
	var integrations []models.Integration
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&integrations).Error
	return integrations, err
}
