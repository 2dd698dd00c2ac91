// File: services/agenda/service.go
package agenda

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"

	"agendabot/config"
	agendaRepo "agendabot/database/repository/agenda"
	"agendabot/models"
	"agendabot/utils"
)

// BookRequest carries everything needed to claim a slot.
type BookRequest struct {
	ContactID   string
	PatientName string
	At          time.Time
	Origin      string
	Notes       string
}

// AgendaService is the availability engine: it materializes the rolling slot
// horizon and mediates every booking-state transition.
type AgendaService interface {
	GenerateHorizon(ctx context.Context) (int, error)
	ExtendHorizonByOneDay(ctx context.Context) (int, error)
	ListAvailable(ctx context.Context, week int) ([]models.Slot, error)
	AvailableDays(ctx context.Context, week int) ([]string, error)
	AvailableTimesOn(ctx context.Context, date string) ([]models.Slot, error)
	Book(ctx context.Context, req BookRequest) (*models.Slot, error)
	Cancel(ctx context.Context, contactID string, at time.Time) (*models.Slot, error)
	NextBookingFor(ctx context.Context, contactID string) (*models.Slot, error)
	CancelNextBookingFor(ctx context.Context, contactID string) (*models.Slot, error)
	BookingsFor(ctx context.Context, contactID string) ([]models.Slot, error)
	BookingsOn(ctx context.Context, day time.Time) ([]models.Slot, error)
	MarkDayOff(ctx context.Context, date string) (int64, error)
	MaxWeeks() int
}

// DefaultAgendaService is the production implementation backed by Mongo with
// a short-lived Redis read cache over the availability listings.
type DefaultAgendaService struct {
	Repo  agendaRepo.AgendaRepository
	Cache *redis.Client
	Cfg   *config.Config
	Clock utils.Clock
}

func NewDefaultAgendaService(repo agendaRepo.AgendaRepository, cache *redis.Client, cfg *config.Config) *DefaultAgendaService {
	return &DefaultAgendaService{
		Repo:  repo,
		Cache: cache,
		Cfg:   cfg,
		Clock: utils.NewClock(cfg.Location()),
	}
}

// MaxWeeks reports how many week pages the horizon spans.
func (s *DefaultAgendaService) MaxWeeks() int {
	weeks := s.Cfg.HorizonDays / 7
	if s.Cfg.HorizonDays%7 != 0 {
		weeks++
	}
	return weeks
}
