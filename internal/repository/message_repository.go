package repository

import (
	"context"
	"errors"
	"time"

	"omnichan/backend/internal/models"

	"gorm.io/gorm"
)

type MessageRepository interface {
	FindByPlatformID(ctx context.Context, conversationID uint, platformMessageID string) (*models.Message, error)
	Create(ctx context.Context, message *models.Message) error
	CreateAttachment(ctx context.Context, attachment *models.MessageAttachment) error
	ListByConversation(ctx context.Context, conversationID uint, limit, offset int) ([]models.Message, error)
	CountByConversation(ctx context.Context, conversationID uint) (int64, error)

	// MarkReadUpTo sets readAt on every unread message sent at or before the
	// watermark. Re-applying the same or an older watermark is a no-op since
	// the readAt IS NULL guard excludes already-marked rows.
	MarkReadUpTo(ctx context.Context, conversationID uint, watermark time.Time) (int64, error)

	// MarkDelivered sets deliveredAt for one platform message id if not
	// already delivered. Returns the number of rows updated (0 or 1).
	MarkDelivered(ctx context.Context, conversationID uint, platformMessageID string, deliveredAt time.Time) (int64, error)
}

type GormMessageRepository struct {
	db *gorm.DB
}

func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	return &GormMessageRepository{db: db}
}

func (r *GormMessageRepository) FindByPlatformID(ctx context.Context, conversationID uint, platformMessageID string) (*models.Message, error) {
	var message models.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND platform_message_id = ?", conversationID, platformMessageID).
		First(&message).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &message, nil
}

func (r *GormMessageRepository) Create(ctx context.Context, message *models.Message) error {
	return r.db.WithContext(ctx).Create(message).Error
}

func (r *GormMessageRepository) CreateAttachment(ctx context.Context, attachment *models.MessageAttachment) error {
	return r.db.WithContext(ctx).Create(attachment).Error
}

func (r *GormMessageRepository) ListByConversation(ctx context.Context, conversationID uint, limit, offset int) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.WithContext(ctx).
		Preload("Attachments").
		Where("conversation_id = ?", conversationID).
		Order("sent_at ASC").
		Limit(limit).
		Offset(offset).
		Find(&messages).Error
	return messages, err
}

func (r *GormMessageRepository) CountByConversation(ctx context.Context, conversationID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("conversation_id = ?", conversationID).
		Count(&count).Error
	return count, err
}

func (r *GormMessageRepository) MarkReadUpTo(ctx context.Context, conversationID uint, watermark time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("conversation_id = ? AND sent_at <= ? AND read_at IS NULL", conversationID, watermark).
		Update("read_at", watermark)
	return result.RowsAffected, result.Error
}

func (r *GormMessageRepository) MarkDelivered(ctx context.Context, conversationID uint, platformMessageID string, deliveredAt time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("conversation_id = ? AND platform_message_id = ? AND delivered_at IS NULL", conversationID, platformMessageID).
		Update("delivered_at", deliveredAt)
	return result.RowsAffected, result.Error
}
