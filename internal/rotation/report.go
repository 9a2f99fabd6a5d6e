package rotation

import (
	"context"
	"fmt"
	"sort"

	"github.com/CalebPenning/game-calendar-bot/internal/calendar"
)

const (
	DefaultHistoryLimit = 10
	MaxHistoryLimit     = 25
	DefaultCalendarSpan = 6
	MaxCalendarSpan     = 12
	topPickersInHistory = 5
)

type PickerStat struct {
	UserID   string
	Username string
	Picks    int
}

type History struct {
	Games         []Game
	TopPickers    []PickerStat
	TotalGames    int
	UniquePickers int
}

type CalendarEntry struct {
	Month      calendar.Month
	Game       *Game
	Nomination *Nomination
}

func (s *Service) CurrentGame(ctx context.Context) (*Game, calendar.Month, error) {
	month := s.CurrentMonth()
	game, err := s.repo.GetGameByMonth(ctx, month)
	return game, month, err
}

// History lists the latest games and who picked the most
func (s *Service) History(ctx context.Context, limit int) (History, error) {
	if limit < 1 || limit > MaxHistoryLimit {
		return History{}, fmt.Errorf("%w: limit must be between 1 and %d", ErrInvalidInput, MaxHistoryLimit)
	}
	games, err := s.repo.GetAllGames(ctx)
	if err != nil {
		return History{}, err
	}

	history := History{TotalGames: len(games)}
	if limit > len(games) {
		limit = len(games)
	}
	history.Games = games[:limit]

	// Names come from the most recent pick of each member
	stats := map[string]*PickerStat{}
	for _, game := range games {
		stat, ok := stats[game.PickerID]
		if !ok {
			stat = &PickerStat{UserID: game.PickerID, Username: game.PickerName}
			stats[game.PickerID] = stat
		}
		stat.Picks++
	}
	history.UniquePickers = len(stats)
	for _, stat := range stats {
		history.TopPickers = append(history.TopPickers, *stat)
	}
	sort.Slice(history.TopPickers, func(i, j int) bool {
		a, b := history.TopPickers[i], history.TopPickers[j]
		if a.Picks != b.Picks {
			return a.Picks > b.Picks
		}
		return a.Username < b.Username
	})
	if len(history.TopPickers) > topPickersInHistory {
		history.TopPickers = history.TopPickers[:topPickersInHistory]
	}
	return history, nil
}

// Calendar reports the status of the upcoming months, current month first
func (s *Service) Calendar(ctx context.Context, months int) ([]CalendarEntry, error) {
	if months < 1 || months > MaxCalendarSpan {
		return nil, fmt.Errorf("%w: months must be between 1 and %d", ErrInvalidInput, MaxCalendarSpan)
	}
	entries := make([]CalendarEntry, 0, months)
	for _, month := range calendar.MonthsFrom(s.clock.Now(), months) {
		entry := CalendarEntry{Month: month}
		game, err := s.repo.GetGameByMonth(ctx, month)
		if err != nil {
			return nil, err
		}
		entry.Game = game
		if game == nil {
			nomination, err := s.repo.GetActiveNominationForMonth(ctx, month)
			if err != nil {
				return nil, err
			}
			entry.Nomination = nomination
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Eligible lists who can be nominated next under the policy
func (s *Service) Eligible(ctx context.Context) ([]Member, error) {
	members, games, err := s.history(ctx)
	if err != nil {
		return nil, err
	}
	pool, _ := s.policy.Pool(members, games)
	return pool, nil
}

// Status is the state of a single month
func (s *Service) Status(ctx context.Context, month calendar.Month) (CalendarEntry, error) {
	entry := CalendarEntry{Month: month}
	game, err := s.repo.GetGameByMonth(ctx, month)
	if err != nil {
		return entry, err
	}
	entry.Game = game
	nomination, err := s.repo.GetActiveNominationForMonth(ctx, month)
	if err != nil {
		return entry, err
	}
	entry.Nomination = nomination
	return entry, nil
}
