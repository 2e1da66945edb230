package repositories

import (
	"context"
	"time"

	"github.com/maxaizer/tender-monitor/internal/entities"
	gocache "github.com/patrickmn/go-cache"
	"github.com/samber/lo"
)

const activeProfilesKey = "active"

type profileRepository interface {
	GetActive(ctx context.Context) ([]entities.MonitoringProfile, error)
	GetByName(ctx context.Context, name string) (*entities.MonitoringProfile, error)
}

// CachedProfiles keeps profiles in memory between scan cycles. Profiles are
// only changed from the CLI, so a short expiration is enough. Callers always
// get their own copies and may modify them.
type CachedProfiles struct {
	repo  profileRepository
	cache *gocache.Cache
}

func NewCachedProfiles(repo profileRepository, expiration time.Duration) *CachedProfiles {
	return &CachedProfiles{repo: repo, cache: gocache.New(expiration, 2*expiration)}
}

func (c *CachedProfiles) GetActive(ctx context.Context) ([]entities.MonitoringProfile, error) {
	if value, found := c.cache.Get(activeProfilesKey); found {
		return cloneProfiles(value.([]entities.MonitoringProfile)), nil
	}

	profiles, err := c.repo.GetActive(ctx)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(activeProfilesKey, cloneProfiles(profiles))
	return profiles, nil
}

func (c *CachedProfiles) GetByName(ctx context.Context, name string) (*entities.MonitoringProfile, error) {
	if value, found := c.cache.Get("name:" + name); found {
		profile := value.(entities.MonitoringProfile).Clone()
		return &profile, nil
	}

	profile, err := c.repo.GetByName(ctx, name)
	if profile != nil {
		c.cache.SetDefault("name:"+name, profile.Clone())
	}
	return profile, err
}

func cloneProfiles(profiles []entities.MonitoringProfile) []entities.MonitoringProfile {
	if profiles == nil {
		return nil
	}
	return lo.Map(profiles, func(p entities.MonitoringProfile, _ int) entities.MonitoringProfile { return p.Clone() })
}

func (c *CachedProfiles) Invalidate() {
	c.cache.Flush()
}
