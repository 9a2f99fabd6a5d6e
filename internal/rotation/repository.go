package rotation

import (
	"context"
	"time"

	"github.com/CalebPenning/game-calendar-bot/internal/calendar"
)

// PickRequest is everything recordPick needs to close a month
type PickRequest struct {
	UserID      string
	Username    string
	Month       calendar.Month
	GameName    string
	Description string
	ImageURL    string
	SelectedAt  time.Time
}

// Repository is the single owner of the rotation state. Compound operations are
// atomic: either every write lands or none does
type Repository interface {
	// UpsertMember inserts the member if absent, otherwise only refreshes the display name
	UpsertMember(ctx context.Context, userID string, username string) (Member, error)
	GetMember(ctx context.Context, userID string) (*Member, error)
	GetAllMembers(ctx context.Context) ([]Member, error)

	// SetActiveNomination supersedes any active nomination for the month with a new one.
	// It fails with ErrMonthAlreadyPicked once a game exists for the month
	SetActiveNomination(ctx context.Context, userID string, username string, month calendar.Month) (Nomination, error)
	// NominateIfVacant creates a nomination only when the month has neither a game
	// nor an active nomination. The boolean reports whether a nomination was created
	NominateIfVacant(ctx context.Context, userID string, username string, month calendar.Month) (Nomination, bool, error)
	GetActiveNominationForMonth(ctx context.Context, month calendar.Month) (*Nomination, error)

	// RecordPick stores the game, updates the picker's stats and closes the
	// authorising nomination as one unit
	RecordPick(ctx context.Context, pick PickRequest) (Game, error)
	GetGameByMonth(ctx context.Context, month calendar.Month) (*Game, error)
	// GetAllGames returns every game, most recent month first
	GetAllGames(ctx context.Context) ([]Game, error)
}
