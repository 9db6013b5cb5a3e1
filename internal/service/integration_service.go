package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"omnichan/backend/internal/facebook"
	"omnichan/backend/internal/models"
	"omnichan/backend/internal/repository"
	"omnichan/backend/pkg/logger"
	"omnichan/backend/pkg/secrets"
)

var ErrIntegrationNotFound = errors.New("integration not found")

// IntegrationService runs the platform connect flow: it exchanges an OAuth
// code for page tokens, stores them encrypted and subscribes each page to
// the messaging webhook.
type IntegrationService struct {
	integrations repository.IntegrationRepository
	fb           *facebook.Client
	cipher       *secrets.Cipher
	log          *logger.Logger
}

func NewIntegrationService(
	integrations repository.IntegrationRepository,
	fb *facebook.Client,
	cipher *secrets.Cipher,
	log *logger.Logger,
) *IntegrationService {
	return &IntegrationService{
		integrations: integrations,
		fb:           fb,
		cipher:       cipher,
		log:          log,
	}
}

// ConnectFacebook connects every page the user manages. Pages already
// connected get their token refreshed and are reactivated.
func (s *IntegrationService) ConnectFacebook(ctx context.Context, userID uint, req *models.ConnectFacebookRequest) ([]models.Integration, error) {
	tokenResp, err := s.fb.ExchangeCodeForToken(ctx, req.Code, req.RedirectURI)
	if err != nil {
		return nil, fmt.Errorf("exchanging oauth code: %w", err)
	}

	userToken, err := s.fb.GetLongLivedToken(ctx, tokenResp.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("upgrading to long-lived token: %w", err)
	}

	pages, err := s.fb.GetUserPages(ctx, userToken)
	if err != nil {
		return nil, fmt.Errorf("listing pages: %w", err)
	}
	if len(pages) == 0 {
		return nil, errors.New("the account manages no pages")
	}

	var connected []models.Integration
	for _, page := range pages {
		integration, err := s.connectPage(ctx, userID, page)
		if err != nil {
			s.log.Error("Failed to connect page", "page_id", page.ID, "error", err)
			continue
		}
		connected = append(connected, *integration)
	}
	if len(connected) == 0 {
		return nil, errors.New("no page could be connected")
	}
	return connected, nil
}

func (s *IntegrationService) connectPage(ctx context.Context, userID uint, page facebook.PageInfo) (*models.Integration, error) {
	if err := s.fb.SubscribePage(ctx, page.ID, page.AccessToken); err != nil {
		return nil, fmt.Errorf("subscribing page to webhook: %w", err)
	}

	encrypted, err := s.cipher.Encrypt(page.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("encrypting page token: %w", err)
	}

	integration, err := s.integrations.FindByUserAndPage(ctx, userID, models.PlatformFacebook, page.ID)
	switch {
	case err == nil:
		integration.PlatformPageName = page.Name
		integration.AccessToken = encrypted
		integration.IsActive = true
		integration.LastSyncAt = time.Now()
		if err := s.integrations.Update(ctx, integration); err != nil {
			return nil, err
		}
	case errors.Is(err, repository.ErrNotFound):
		integration = &models.Integration{
			UserID:           userID,
			Platform:         models.PlatformFacebook,
			PlatformPageID:   page.ID,
			PlatformPageName: page.Name,
			AccessToken:      encrypted,
			IsActive:         true,
			LastSyncAt:       time.Now(),
		}
		if err := s.integrations.Create(ctx, integration); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	s.log.Info("Page connected", "user_id", userID, "page_id", page.ID, "page_name", page.Name)
	return integration, nil
}

func (s *IntegrationService) List(ctx context.Context, userID uint) ([]models.Integration, error) {
	return s.integrations.ListByUser(ctx, userID)
}

// SetActive toggles an integration after checking ownership
func (s *IntegrationService) SetActive(ctx context.Context, userID, id uint, active bool) error {
	integration, err := s.integrations.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrIntegrationNotFound
		}
		return err
	}
	if integration.UserID != userID {
		return ErrIntegrationNotFound
	}
	return s.integrations.SetActive(ctx, id, active)
}
