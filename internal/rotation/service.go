package rotation

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/CalebPenning/game-calendar-bot/internal/calendar"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

// Notifier delivers the side effects of a committed transition. Deliveries are
// best effort: a returned error is logged and never undoes the transition
type Notifier interface {
	// Nominated tells the nominee they have been nominated
	Nominated(ctx context.Context, nomination Nomination) error
	// Picked broadcasts a freshly recorded game
	Picked(ctx context.Context, game Game) error
}

type ServiceConfig struct {
	Policy     Policy
	Clock      calendar.Clock
	Notifier   Notifier
	Random     io.Reader // crypto/rand.Reader when nil
	Registerer prometheus.Registerer
}

// Service holds the nomination and selection lifecycles. All state changes go
// through the Repository; the service only decides what is allowed
type Service struct {
	repo     Repository
	policy   Policy
	clock    calendar.Clock
	notifier Notifier
	random   io.Reader
	metrics  *serviceMetrics
}

func NewService(repo Repository, config ServiceConfig) *Service {
	service := &Service{
		repo:     repo,
		policy:   config.Policy,
		clock:    config.Clock,
		notifier: config.Notifier,
		random:   config.Random,
		metrics:  newServiceMetrics(config.Registerer),
	}
	if service.clock == nil {
		service.clock = calendar.SystemClock{}
	}
	if service.random == nil {
		service.random = rand.Reader
	}
	return service
}

func (s *Service) Policy() Policy {
	return s.policy
}

func (s *Service) Clock() calendar.Clock {
	return s.clock
}

func (s *Service) CurrentMonth() calendar.Month {
	return calendar.CurrentMonth(s.clock.Now())
}

type NominateRequest struct {
	UserID   string
	Username string
	// Month in YYYY-MM format. Empty means the current month
	Month string
	// Force skips the fairness gate, never the month checks
	Force bool
}

// Nominate makes the user the active nominee of the month, superseding any
// previous nominee. The caller tells the nominee through NotifyNominated once
// it has answered whoever asked for the nomination
func (s *Service) Nominate(ctx context.Context, request NominateRequest) (Nomination, error) {
	nomination, err := s.nominate(ctx, request)
	if err != nil {
		s.metrics.reject(err)
		return Nomination{}, err
	}
	s.metrics.nominations.WithLabelValues("manual").Inc()
	log.Info().Msg(fmt.Sprintf("%s nominated for %s", nomination.NominatedUsername, nomination.TargetMonth))
	return nomination, nil
}

// NotifyNominated tells the nominee about a stored nomination. Failures are
// logged and counted, the nomination stands either way
func (s *Service) NotifyNominated(ctx context.Context, nomination Nomination) {
	s.notifyNominated(ctx, nomination)
}

func (s *Service) nominate(ctx context.Context, request NominateRequest) (Nomination, error) {
	if strings.TrimSpace(request.UserID) == "" {
		return Nomination{}, fmt.Errorf("%w: missing user", ErrInvalidInput)
	}

	month := s.CurrentMonth()
	if request.Month != "" {
		parsed, err := calendar.ParseMonth(request.Month)
		if err != nil {
			return Nomination{}, err
		}
		month = parsed
	}

	game, err := s.repo.GetGameByMonth(ctx, month)
	if err != nil {
		return Nomination{}, err
	}
	if game != nil {
		return Nomination{}, &AlreadyPickedError{Game: *game}
	}

	if !request.Force {
		members, games, err := s.history(ctx)
		if err != nil {
			return Nomination{}, err
		}
		if err := s.policy.Check(request.UserID, members, games); err != nil {
			return Nomination{}, err
		}
	}

	if _, err := s.repo.UpsertMember(ctx, request.UserID, request.Username); err != nil {
		return Nomination{}, err
	}
	return s.repo.SetActiveNomination(ctx, request.UserID, request.Username, month)
}

// ResolveSelection finds the month the user may pick for: the current month when
// they hold its nomination, otherwise the next month when they hold that one
func (s *Service) ResolveSelection(ctx context.Context, userID string) (Nomination, error) {
	nomination, err := s.resolveSelection(ctx, userID)
	if err != nil {
		s.metrics.reject(err)
	}
	return nomination, err
}

func (s *Service) resolveSelection(ctx context.Context, userID string) (Nomination, error) {
	now := s.clock.Now()
	current, err := s.repo.GetActiveNominationForMonth(ctx, calendar.CurrentMonth(now))
	if err != nil {
		return Nomination{}, err
	}
	next, err := s.repo.GetActiveNominationForMonth(ctx, calendar.NextMonth(now))
	if err != nil {
		return Nomination{}, err
	}

	var target *Nomination
	switch {
	case current != nil && current.NominatedUserID == userID:
		target = current
	case next != nil && next.NominatedUserID == userID:
		target = next
	case current != nil:
		return Nomination{}, &WrongNomineeError{Nomination: *current}
	case next != nil:
		return Nomination{}, &WrongNomineeError{Nomination: *next}
	default:
		return Nomination{}, ErrNotNominated
	}

	game, err := s.repo.GetGameByMonth(ctx, target.TargetMonth)
	if err != nil {
		return Nomination{}, err
	}
	if game != nil {
		return Nomination{}, &AlreadyPickedError{Game: *game}
	}
	return *target, nil
}

type SelectRequest struct {
	UserID   string
	Username string
	// Month pins the target month, as resolved before an interactive wait.
	// Empty means resolve it now
	Month       calendar.Month
	GameName    string
	Description string
	ImageURL    string
}

// SelectGame turns the user's active nomination into the month's game
func (s *Service) SelectGame(ctx context.Context, request SelectRequest) (Game, error) {
	game, err := s.selectGame(ctx, request)
	if err != nil {
		s.metrics.reject(err)
		return Game{}, err
	}
	s.metrics.picks.Inc()
	s.notifyPicked(ctx, game)
	return game, nil
}

func (s *Service) selectGame(ctx context.Context, request SelectRequest) (Game, error) {
	name := strings.TrimSpace(request.GameName)
	if name == "" {
		return Game{}, fmt.Errorf("%w: missing game name", ErrInvalidInput)
	}

	month := request.Month
	if month == "" {
		nomination, err := s.resolveSelection(ctx, request.UserID)
		if err != nil {
			return Game{}, err
		}
		month = nomination.TargetMonth
	}

	return s.repo.RecordPick(ctx, PickRequest{
		UserID:      request.UserID,
		Username:    request.Username,
		Month:       month,
		GameName:    name,
		Description: request.Description,
		ImageURL:    request.ImageURL,
		SelectedAt:  s.clock.Now(),
	})
}

// AutoNominate draws a nominee for the month among the candidates. It is a no-op,
// returning nil, when the month already has a nomination or a game
func (s *Service) AutoNominate(ctx context.Context, month calendar.Month, candidates []Candidate) (*Nomination, error) {
	if vacant, err := s.vacant(ctx, month); err != nil || !vacant {
		return nil, err
	}

	members, games, err := s.history(ctx)
	if err != nil {
		return nil, err
	}
	pool := s.policy.Candidates(candidates, members, games)
	if len(pool) == 0 {
		return nil, ErrNoCandidates
	}
	index, err := rand.Int(s.random, big.NewInt(int64(len(pool))))
	if err != nil {
		return nil, fmt.Errorf("could not draw a candidate: %w", err)
	}
	chosen := pool[index.Int64()]

	if _, err := s.repo.UpsertMember(ctx, chosen.UserID, chosen.Username); err != nil {
		return nil, err
	}
	nomination, created, err := s.repo.NominateIfVacant(ctx, chosen.UserID, chosen.Username, month)
	if err != nil {
		return nil, err
	}
	if !created {
		log.Info().Msg(fmt.Sprintf("Month %s was filled while drawing, skipping auto-nomination", month))
		return nil, nil
	}

	s.metrics.nominations.WithLabelValues("auto").Inc()
	log.Info().Msg(fmt.Sprintf("Auto-nominated %s for %s out of %d candidates", chosen.Username, month, len(pool)))
	s.notifyNominated(ctx, nomination)
	return &nomination, nil
}

func (s *Service) vacant(ctx context.Context, month calendar.Month) (bool, error) {
	nomination, err := s.repo.GetActiveNominationForMonth(ctx, month)
	if err != nil {
		return false, err
	}
	if nomination != nil {
		log.Info().Msg(fmt.Sprintf("%s already nominated for %s", nomination.NominatedUsername, month))
		return false, nil
	}
	game, err := s.repo.GetGameByMonth(ctx, month)
	if err != nil {
		return false, err
	}
	if game != nil {
		log.Info().Msg(fmt.Sprintf("%s already has %q", month, game.GameName))
		return false, nil
	}
	return true, nil
}

func (s *Service) history(ctx context.Context) ([]Member, []Game, error) {
	members, err := s.repo.GetAllMembers(ctx)
	if err != nil {
		return nil, nil, err
	}
	games, err := s.repo.GetAllGames(ctx)
	if err != nil {
		return nil, nil, err
	}
	return members, games, nil
}

func (s *Service) notifyNominated(ctx context.Context, nomination Nomination) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Nominated(ctx, nomination); err != nil {
		s.metrics.notificationFailures.WithLabelValues("nominated").Inc()
		log.Warn().Err(err).Msg(fmt.Sprintf("Could not notify %s of their nomination", nomination.NominatedUserID))
	}
}

func (s *Service) notifyPicked(ctx context.Context, game Game) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Picked(ctx, game); err != nil {
		s.metrics.notificationFailures.WithLabelValues("picked").Inc()
		log.Warn().Err(err).Msg(fmt.Sprintf("Could not broadcast the pick of %s", game.Month))
	}
}
