package facebook

import (
	"context"
	"time"

	"omnichan/backend/pkg/cache"
	"omnichan/backend/pkg/logger"
	"omnichan/backend/shared/redis"
)

// profileFetcher is the subset of the Graph client the cache needs
type profileFetcher interface {
	GetUserProfile(ctx context.Context, accessToken, psid string) (*UserProfile, error)
}

// ProfileCache resolves messaging user names, caching them in Redis with a
// local in-memory layer in front. A Graph API failure degrades to an empty
// name rather than an error so message ingestion never stalls on profiles.
type ProfileCache struct {
	fetcher profileFetcher
	redis   *redis.RedisClient
	local   *cache.Cache
	expiry  time.Duration
	log     *logger.Logger
}

func NewProfileCache(fetcher profileFetcher, redisClient *redis.RedisClient, expiry time.Duration, log *logger.Logger) *ProfileCache {
	return &ProfileCache{
		fetcher: fetcher,
		redis:   redisClient,
		local:   cache.NewCache(),
		expiry:  expiry,
		log:     log,
	}
}

// GetName returns the display name for a messaging user, or "" if the
// profile cannot be resolved.
func (p *ProfileCache) GetName(ctx context.Context, accessToken, psid string) string {
	if name, ok := p.local.Get(psid); ok {
		return name.(string)
	}

	key := "fb:profile:" + psid
	if p.redis != nil {
		if name, err := p.redis.Get(key); err == nil && name != "" {
			p.local.SetWithExpiration(psid, name, p.expiry)
			return name
		}
	}

	profile, err := p.fetcher.GetUserProfile(ctx, accessToken, psid)
	if err != nil {
		p.log.Warn("Failed to fetch user profile", "psid", psid, "error", err)
		return ""
	}

	p.local.SetWithExpiration(psid, profile.Name, p.expiry)
	if p.redis != nil {
		if err := p.redis.Set(key, profile.Name, p.expiry); err != nil {
			p.log.Warn("Failed to cache user profile", "psid", psid, "error", err)
		}
	}
	return profile.Name
}
