package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dostyq-support/internal/model"
	"dostyq-support/internal/repository"
)

// Snapshot is a point-in-time view of the bot's aggregates.
type Snapshot struct {
	Users        int64
	OpenTickets  int64
	TicketsToday int64
	At           time.Time
}

// StatsService computes admin statistics and maintains the daily stats table.
type StatsService struct {
	users   *repository.UserRepository
	tickets *repository.TicketRepository
	stats   *repository.StatRepository
	now     func() time.Time
}

func NewStatsService(users *repository.UserRepository, tickets *repository.TicketRepository, stats *repository.StatRepository, now func() time.Time) *StatsService {
	if now == nil {
		now = time.Now
	}
	return &StatsService{users: users, tickets: tickets, stats: stats, now: now}
}

// Snapshot counts all users, open tickets and tickets created since local midnight.
func (s *StatsService) Snapshot(ctx context.Context) (Snapshot, error) {
	now := s.now()
	from, to := dayBounds(now)

	users, err := s.users.Count(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	open, err := s.tickets.CountByStatus(ctx, model.TicketStatusOpen)
	if err != nil {
		return Snapshot{}, err
	}
	today, err := s.tickets.CountCreatedBetween(ctx, from, to)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Users: users, OpenTickets: open, TicketsToday: today, At: now}, nil
}

// Report renders the admin statistics message.
func (s *StatsService) Report(ctx context.Context) (string, error) {
	snap, err := s.Snapshot(ctx)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.WriteString("📊 Статистика DostyqTV Bot:\n\n")
	sb.WriteString(fmt.Sprintf("👥 Пользователи: %d\n", snap.Users))
	sb.WriteString(fmt.Sprintf("🎫 Открытые обращения: %d\n", snap.OpenTickets))
	sb.WriteString(fmt.Sprintf("📋 Обращения за сегодня: %d\n\n", snap.TicketsToday))
	sb.WriteString(fmt.Sprintf("📅 Дата: %s", snap.At.Format("02.01.2006 15:04")))
	return sb.String(), nil
}

// CountMessage records one incoming free-text message for today.
func (s *StatsService) CountMessage(ctx context.Context) error {
	return s.stats.IncrementMessages(ctx, s.now().Format(model.DateLayout))
}

// AggregateDay stores the active-user and created-ticket counts of the
// calendar day containing day. The message counter of that day is kept.
func (s *StatsService) AggregateDay(ctx context.Context, day time.Time) (model.DailyStat, error) {
	from, to := dayBounds(day)
	users, err := s.users.CountActiveBetween(ctx, from, to)
	if err != nil {
		return model.DailyStat{}, err
	}
	tickets, err := s.tickets.CountCreatedBetween(ctx, from, to)
	if err != nil {
		return model.DailyStat{}, err
	}
	stat := model.DailyStat{
		Date:         from.Format(model.DateLayout),
		UsersCount:   users,
		TicketsCount: tickets,
	}
	if err := s.stats.SaveCounts(ctx, stat); err != nil {
		return model.DailyStat{}, err
	}
	saved, err := s.stats.Get(ctx, stat.Date)
	if err != nil {
		return model.DailyStat{}, fmt.Errorf("reload daily stat: %w", err)
	}
	return *saved, nil
}

// AggregateToday is AggregateDay for the current day; it fits SchedulerService.
func (s *StatsService) AggregateToday(ctx context.Context) error {
	_, err := s.AggregateDay(ctx, s.now())
	return err
}

func dayBounds(t time.Time) (time.Time, time.Time) {
	year, month, day := t.Date()
	start := time.Date(year, month, day, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1)
}
