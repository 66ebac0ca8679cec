package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"timalaus_progression/internal/model"
	"timalaus_progression/internal/repository"

	lru "github.com/hashicorp/golang-lru"
)

const (
	allQuestsKey       = "quests:*"
	allAchievementsKey = "achievements:*"
)

type CatalogSource interface {
	ListQuestDefinitions(ctx context.Context) ([]*model.QuestDefinition, error)
	GetQuestDefinition(ctx context.Context, questKey string) (*model.QuestDefinition, error)
	ListAchievements(ctx context.Context) ([]*model.Achievement, error)
	GetAchievement(ctx context.Context, key string) (*model.Achievement, error)
}

type cachedEntry struct {
	value    any
	loadedAt time.Time
}

// Catalog is a read-through cache over quest and achievement definitions.
// Entries older than ttl are reloaded on access. Misses are not cached.
type Catalog struct {
	source CatalogSource
	cache  *lru.Cache
	ttl    time.Duration
	now    func() time.Time
}

func NewCatalog(source CatalogSource, size int, ttl time.Duration) (*Catalog, error) {
	if size <= 0 {
		size = 256
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog cache: %w", err)
	}
	return &Catalog{
		source: source,
		cache:  cache,
		ttl:    ttl,
		now:    utcNow,
	}, nil
}

func (c *Catalog) lookup(key string) (any, bool) {
	raw, ok := c.cache.Get(key)
	if !ok {
		return nil, false
	}
	entry := raw.(cachedEntry)
	if c.ttl > 0 && c.now().Sub(entry.loadedAt) >= c.ttl {
		c.cache.Remove(key)
		return nil, false
	}
	return entry.value, true
}

func (c *Catalog) store(key string, value any) {
	c.cache.Add(key, cachedEntry{value: value, loadedAt: c.now()})
}

// Quest returns a copy of the definition so callers may scale it freely.
func (c *Catalog) Quest(ctx context.Context, questKey string) (*model.QuestDefinition, error) {
	if v, ok := c.lookup("quest:" + questKey); ok {
		def := *v.(*model.QuestDefinition)
		return &def, nil
	}
	if v, ok := c.lookup(allQuestsKey); ok {
		for _, def := range v.([]*model.QuestDefinition) {
			if def.Key == questKey {
				out := *def
				return &out, nil
			}
		}
	}

	def, err := c.source.GetQuestDefinition(ctx, questKey)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrQuestNotFound
		}
		return nil, fmt.Errorf("failed to load quest %s: %w", questKey, err)
	}
	c.store("quest:"+questKey, def)

	out := *def
	return &out, nil
}

// ActiveQuests returns the active definitions in catalog order.
func (c *Catalog) ActiveQuests(ctx context.Context) ([]model.QuestDefinition, error) {
	var defs []*model.QuestDefinition
	if v, ok := c.lookup(allQuestsKey); ok {
		defs = v.([]*model.QuestDefinition)
	} else {
		loaded, err := c.source.ListQuestDefinitions(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load quest catalog: %w", err)
		}
		c.store(allQuestsKey, loaded)
		defs = loaded
	}

	out := make([]model.QuestDefinition, 0, len(defs))
	for _, def := range defs {
		if def.IsActive {
			out = append(out, *def)
		}
	}
	return out, nil
}

func (c *Catalog) Achievement(ctx context.Context, key string) (*model.Achievement, error) {
	if v, ok := c.lookup("achievement:" + key); ok {
		a := *v.(*model.Achievement)
		return &a, nil
	}
	if v, ok := c.lookup(allAchievementsKey); ok {
		for _, a := range v.([]*model.Achievement) {
			if a.Key == key {
				out := *a
				return &out, nil
			}
		}
	}

	a, err := c.source.GetAchievement(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAchievementNotFound
		}
		return nil, fmt.Errorf("failed to load achievement %s: %w", key, err)
	}
	c.store("achievement:"+key, a)

	out := *a
	return &out, nil
}

// Achievements returns every achievement, including inactive ones.
func (c *Catalog) Achievements(ctx context.Context) ([]model.Achievement, error) {
	var all []*model.Achievement
	if v, ok := c.lookup(allAchievementsKey); ok {
		all = v.([]*model.Achievement)
	} else {
		loaded, err := c.source.ListAchievements(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load achievements: %w", err)
		}
		c.store(allAchievementsKey, loaded)
		all = loaded
	}

	out := make([]model.Achievement, len(all))
	for i, a := range all {
		out[i] = *a
	}
	return out, nil
}

// Invalidate drops every cached definition.
func (c *Catalog) Invalidate() {
	c.cache.Purge()
}
