package repository

import (
	"context"
	"errors"
	"time"

	"omnichan/backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ConversationFilter narrows ListByUser results
type ConversationFilter struct {
	Status   string
	Platform string
}

type ConversationRepository interface {
	FindByThread(ctx context.Context, userID, customerID uint, platformConversationID, platform string) (*models.Conversation, error)
	FindByID(ctx context.Context, id uint) (*models.Conversation, error)
	Create(ctx context.Context, conversation *models.Conversation) error
	UpdateLastMessage(ctx context.Context, id uint, content string, at time.Time) error
	UpdateStatus(ctx context.Context, id uint, status string) error
	UpdateAnalysis(ctx context.Context, id uint, intent, sentiment string, purchaseProbability float64, urgency string) error
	ListByUser(ctx context.Context, userID uint, filter ConversationFilter, limit, offset int) ([]models.Conversation, error)
}

type GormConversationRepository struct {
	db *gorm.DB
}

func NewGormConversationRepository(db *gorm.DB) *GormConversationRepository {
	return &GormConversationRepository{db: db}
}

func (r *GormConversationRepository) FindByThread(ctx context.Context, userID, customerID uint, platformConversationID, platform string) (*models.Conversation, error) {
	var conversation models.Conversation
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND customer_id = ? AND platform_conversation_id = ? AND platform = ?",
			userID, customerID, platformConversationID, platform).
		First(&conversation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &conversation, nil
}

func (r *GormConversationRepository) FindByID(ctx context.Context, id uint) (*models.Conversation, error) {
	var conversation models.Conversation
	err := r.db.WithContext(ctx).
		Preload("Customer").
		First(&conversation, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &conversation, nil
}

// Create inserts the conversation, tolerating a concurrent create for the
// same thread key the same way the customer repository does.
func (r *GormConversationRepository) Create(ctx context.Context, conversation *models.Conversation) error {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(conversation)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		existing, err := r.FindByThread(ctx, conversation.UserID, conversation.CustomerID,
			conversation.PlatformConversationID, conversation.Platform)
		if err != nil {
			return err
		}
		*conversation = *existing
	}
	return nil
}

func (r *GormConversationRepository) UpdateLastMessage(ctx context.Context, id uint, content string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Conversation{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_message":    content,
			"last_message_at": at,
		}).Error
}

func (r *GormConversationRepository) UpdateStatus(ctx context.Context, id uint, status string) error {
	result := r.db.WithContext(ctx).
		Model(&models.Conversation{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormConversationRepository) UpdateAnalysis(ctx context.Context, id uint, intent, sentiment string, purchaseProbability float64, urgency string) error {
	return r.db.WithContext(ctx).
		Model(&models.Conversation{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"intent":               intent,
			"sentiment":            sentiment,
			"purchase_probability": purchaseProbability,
			"urgency":              urgency,
		}).Error
}

func (r *GormConversationRepository) ListByUser(ctx context.Context, userID uint, filter ConversationFilter, limit, offset int) ([]models.Conversation, error) {
	query := r.db.WithContext(ctx).
		Preload("Customer").
		Where("user_id = ?", userID)
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Platform != "" {
		query = query.Where("platform = ?", filter.Platform)
	}

	var conversations []models.Conversation
	err := query.
		Order("last_message_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&conversations).Error
	return conversations, err
}
