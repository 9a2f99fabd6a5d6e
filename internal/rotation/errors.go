package rotation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/CalebPenning/game-calendar-bot/internal/calendar"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidMonth       = calendar.ErrInvalidMonth
	ErrMonthAlreadyPicked = errors.New("a game has already been picked for this month")
	ErrDuplicatePick      = ErrMonthAlreadyPicked
	ErrNotNominated       = errors.New("user is not nominated")
	ErrWrongNominee       = errors.New("another member holds the nomination")
	ErrNotEligible        = errors.New("user is not eligible for nomination")
	ErrNoCandidates       = errors.New("no eligible candidates")
	ErrStorage            = errors.New("storage failure")
)

// AlreadyPickedError carries the game that already closed the month
type AlreadyPickedError struct {
	Game Game
}

func (e *AlreadyPickedError) Error() string {
	return fmt.Sprintf("%s: %s picked %q for %s", ErrMonthAlreadyPicked, e.Game.PickerName, e.Game.GameName, e.Game.Month)
}

func (e *AlreadyPickedError) Is(target error) bool {
	return target == ErrMonthAlreadyPicked
}

// WrongNomineeError carries the nomination held by somebody else
type WrongNomineeError struct {
	Nomination Nomination
}

func (e *WrongNomineeError) Error() string {
	return fmt.Sprintf("%s: %s is nominated for %s", ErrWrongNominee, e.Nomination.NominatedUsername, e.Nomination.TargetMonth)
}

func (e *WrongNomineeError) Is(target error) bool {
	return target == ErrWrongNominee
}

// NotEligibleError explains why the fairness gate blocked a nomination
type NotEligibleError struct {
	UserID        string
	Reason        string
	RecentPickers []Game
	Eligible      []Member
}

func (e *NotEligibleError) Error() string {
	names := make([]string, 0, len(e.RecentPickers))
	for _, game := range e.RecentPickers {
		names = append(names, game.PickerName)
	}
	return fmt.Sprintf("%s: %s (recent pickers: %s)", ErrNotEligible, e.Reason, strings.Join(names, ", "))
}

func (e *NotEligibleError) Is(target error) bool {
	return target == ErrNotEligible
}

// IsDomainError tells apart rule violations, which are reported to the user,
// from internal failures
func IsDomainError(err error) bool {
	for _, target := range []error{ErrInvalidInput, ErrInvalidMonth, ErrMonthAlreadyPicked, ErrNotNominated, ErrWrongNominee, ErrNotEligible, ErrNoCandidates} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func storageError(operation string, err error) error {
	if err == nil || IsDomainError(err) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrStorage, operation, err)
}
