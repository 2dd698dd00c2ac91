// File: services/agenda/cache.go
package agenda

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"agendabot/models"
	"agendabot/utils"
)

// Listings are cached for a few seconds to absorb bursts of menu taps, and
// the cached copy doubles as a stale fallback when the store is unreachable.
const listingStaleTTL = 10 * time.Minute

type cachedListing struct {
	FetchedAt time.Time     `json:"fetchedAt"`
	Slots     []models.Slot `json:"slots"`
}

func listingKey(week int) string {
	return fmt.Sprintf("agenda:listing:week:%d", week)
}

// ListAvailable returns the open slots of a week window. A fresh cached copy
// short-circuits the store; a stale copy is served only when the store errors
// out, so readers degrade instead of failing.
func (s *DefaultAgendaService) ListAvailable(ctx context.Context, week int) ([]models.Slot, error) {
	logger := utils.GetLogger()

	if week < 0 || week >= s.MaxWeeks() {
		return nil, nil
	}

	var stale *cachedListing
	if s.Cache != nil {
		if raw, err := s.Cache.Get(ctx, listingKey(week)).Result(); err == nil {
			var cached cachedListing
			if err := json.Unmarshal([]byte(raw), &cached); err == nil {
				if s.Clock.Now().Sub(cached.FetchedAt) < time.Duration(s.Cfg.CacheTTLSeconds)*time.Second {
					return cached.Slots, nil
				}
				stale = &cached
			}
		}
	}

	win := WindowForWeek(s.Clock.Now(), week)
	slots, err := s.Repo.ListAvailableInRange(ctx, win.From, win.To)
	if err != nil {
		if stale != nil {
			logger.Warn("serving stale availability listing",
				zap.Int("week", week),
				zap.Time("fetchedAt", stale.FetchedAt),
				zap.Error(err))
			return stale.Slots, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if s.Cache != nil {
		payload, merr := json.Marshal(cachedListing{FetchedAt: s.Clock.Now(), Slots: slots})
		if merr == nil {
			if err := s.Cache.Set(ctx, listingKey(week), payload, listingStaleTTL).Err(); err != nil {
				logger.Warn("failed to cache availability listing", zap.Error(err))
			}
		}
	}
	return slots, nil
}

// invalidateListings drops every cached week page after a state transition.
func (s *DefaultAgendaService) invalidateListings(ctx context.Context) {
	if s.Cache == nil {
		return
	}
	keys := make([]string, 0, s.MaxWeeks())
	for week := 0; week < s.MaxWeeks(); week++ {
		keys = append(keys, listingKey(week))
	}
	if err := s.Cache.Del(ctx, keys...).Err(); err != nil {
		utils.GetLogger().Warn("failed to invalidate listing cache", zap.Error(err))
	}
}
