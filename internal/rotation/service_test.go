package rotation

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/CalebPenning/game-calendar-bot/internal/calendar"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}

type fakeNotifier struct {
	mu          sync.Mutex
	nominations []Nomination
	picks       []Game
	err         error
}

func (n *fakeNotifier) Nominated(ctx context.Context, nomination Nomination) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nominations = append(n.nominations, nomination)
	return n.err
}

func (n *fakeNotifier) Picked(ctx context.Context, game Game) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.picks = append(n.picks, game)
	return n.err
}

type serviceFixture struct {
	repo     *DatabaseRotation
	service  *Service
	notifier *fakeNotifier
	now      time.Time
}

func newServiceFixture(t *testing.T, policy Policy) *serviceFixture {
	t.Helper()
	f := &serviceFixture{
		repo:     newTestRepository(t),
		notifier: &fakeNotifier{},
		now:      time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC),
	}
	f.service = NewService(f.repo, ServiceConfig{
		Policy:     policy,
		Clock:      calendar.ClockFunc(func() time.Time { return f.now }),
		Notifier:   f.notifier,
		Random:     zeroReader{},
		Registerer: prometheus.NewRegistry(),
	})
	return f
}

// pick records a game for the month through the repository, as an earlier pick would have
func (f *serviceFixture) pick(t *testing.T, userID string, month calendar.Month, name string) {
	t.Helper()
	ctx := context.Background()
	_, err := f.repo.SetActiveNomination(ctx, userID, userID, month)
	require.NoError(t, err)
	_, err = f.repo.RecordPick(ctx, PickRequest{
		UserID:     userID,
		Username:   userID,
		Month:      month,
		GameName:   name,
		SelectedAt: month.Time(),
	})
	require.NoError(t, err)
}

func TestNominateDefaultsToCurrentMonth(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, Policy{ExcludeRecent: 2})

	nomination, err := f.service.Nominate(ctx, NominateRequest{UserID: "u1", Username: "Alice"})
	require.NoError(t, err)
	assert.Equal(t, calendar.Month("2024-03"), nomination.TargetMonth)
	assert.True(t, nomination.IsActive)

	member, err := f.repo.GetMember(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, member)
	assert.Equal(t, "Alice", member.Username)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.service.metrics.nominations.WithLabelValues("manual")))

	// the nominee hears about it only when the caller asks
	assert.Empty(t, f.notifier.nominations)
	f.service.NotifyNominated(ctx, nomination)
	require.Len(t, f.notifier.nominations, 1)
	assert.Equal(t, nomination.ID, f.notifier.nominations[0].ID)
}

func TestNominateRejections(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, Policy{ExcludeRecent: 1, ExcludedUserIDs: []string{"bot"}})

	_, err := f.service.Nominate(ctx, NominateRequest{UserID: " "})
	assert.ErrorIs(t, err, ErrInvalidInput)

	for _, month := range []string{"2024-13", "2024-3", "March", "2024-00"} {
		_, err := f.service.Nominate(ctx, NominateRequest{UserID: "u1", Username: "u1", Month: month})
		assert.ErrorIs(t, err, ErrInvalidMonth, month)
	}

	f.pick(t, "u1", "2024-02", "Celeste")
	_, err = f.repo.UpsertMember(ctx, "u2", "u2")
	require.NoError(t, err)

	// The most recent picker sits out
	_, err = f.service.Nominate(ctx, NominateRequest{UserID: "u1", Username: "u1", Month: "2024-04"})
	var notEligible *NotEligibleError
	require.ErrorAs(t, err, &notEligible)
	require.Len(t, notEligible.RecentPickers, 1)
	assert.Equal(t, "Celeste", notEligible.RecentPickers[0].GameName)

	_, err = f.service.Nominate(ctx, NominateRequest{UserID: "bot", Username: "bot", Month: "2024-04"})
	assert.ErrorIs(t, err, ErrNotEligible)

	// A picked month accepts nobody, not even a forced nomination
	_, err = f.service.Nominate(ctx, NominateRequest{UserID: "u2", Username: "u2", Month: "2024-02", Force: true})
	var picked *AlreadyPickedError
	require.ErrorAs(t, err, &picked)
	assert.Equal(t, "Celeste", picked.Game.GameName)

	active, err := f.repo.GetActiveNominationForMonth(ctx, "2024-02")
	require.NoError(t, err)
	assert.Nil(t, active)
	active, err = f.repo.GetActiveNominationForMonth(ctx, "2024-04")
	require.NoError(t, err)
	assert.Nil(t, active)
	assert.Empty(t, f.notifier.nominations)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.service.metrics.rejections.WithLabelValues("already_picked")))
	assert.Equal(t, 2.0, testutil.ToFloat64(f.service.metrics.rejections.WithLabelValues("not_eligible")))
}

func TestNominateForceBypassesEligibility(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, Policy{ExcludeRecent: 1})
	f.pick(t, "u1", "2024-02", "Celeste")
	_, err := f.repo.UpsertMember(ctx, "u2", "u2")
	require.NoError(t, err)

	_, err = f.service.Nominate(ctx, NominateRequest{UserID: "u1", Username: "u1", Month: "2024-04"})
	require.ErrorIs(t, err, ErrNotEligible)

	nomination, err := f.service.Nominate(ctx, NominateRequest{UserID: "u1", Username: "u1", Month: "2024-04", Force: true})
	require.NoError(t, err)
	assert.Equal(t, calendar.Month("2024-04"), nomination.TargetMonth)
}

func TestNominateSupersedesPreviousNominee(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, Policy{})

	_, err := f.service.Nominate(ctx, NominateRequest{UserID: "a", Username: "a"})
	require.NoError(t, err)
	second, err := f.service.Nominate(ctx, NominateRequest{UserID: "b", Username: "b"})
	require.NoError(t, err)

	active, err := f.repo.GetActiveNominationForMonth(ctx, "2024-03")
	require.NoError(t, err)
	assert.Equal(t, second.ID, active.ID)
}

func TestNotifierFailureKeepsNomination(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, Policy{})
	f.notifier.err = errors.New("cannot send messages to this user")

	nomination, err := f.service.Nominate(ctx, NominateRequest{UserID: "u1", Username: "u1"})
	require.NoError(t, err)
	f.service.NotifyNominated(ctx, nomination)

	active, err := f.repo.GetActiveNominationForMonth(ctx, "2024-03")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, nomination.ID, active.ID)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.service.metrics.notificationFailures.WithLabelValues("nominated")))

	game, err := f.service.SelectGame(ctx, SelectRequest{UserID: "u1", Username: "u1", GameName: "Hades"})
	require.NoError(t, err)
	assert.Equal(t, "Hades", game.GameName)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.service.metrics.notificationFailures.WithLabelValues("picked")))
}

func TestServiceLogs(t *testing.T) {
	var buffer bytes.Buffer
	previous := log.Logger
	log.Logger = zerolog.New(&buffer)
	t.Cleanup(func() { log.Logger = previous })

	ctx := context.Background()
	f := newServiceFixture(t, Policy{})
	f.notifier.err = errors.New("cannot send messages to this user")

	nomination, err := f.service.Nominate(ctx, NominateRequest{UserID: "u1", Username: "Alice"})
	require.NoError(t, err)
	f.service.NotifyNominated(ctx, nomination)
	_, err = f.service.SelectGame(ctx, SelectRequest{UserID: "u1", Username: "Alice", GameName: "Hades"})
	require.NoError(t, err)

	output := buffer.String()
	assert.Contains(t, output, "Alice nominated for 2024-03")
	assert.Contains(t, output, "Could not notify u1 of their nomination")
	assert.Contains(t, output, `Recorded \"Hades\" for 2024-03 picked by Alice`)
	assert.Contains(t, output, "Could not broadcast the pick of 2024-03")
}

func TestResolveSelection(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, Policy{})

	_, err := f.service.ResolveSelection(ctx, "a")
	assert.ErrorIs(t, err, ErrNotNominated)

	// Next month only
	_, err = f.service.Nominate(ctx, NominateRequest{UserID: "a", Username: "a", Month: "2024-04"})
	require.NoError(t, err)
	nomination, err := f.service.ResolveSelection(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, calendar.Month("2024-04"), nomination.TargetMonth)

	// The current month wins over the next one
	_, err = f.service.Nominate(ctx, NominateRequest{UserID: "a", Username: "a", Month: "2024-03"})
	require.NoError(t, err)
	nomination, err = f.service.ResolveSelection(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, calendar.Month("2024-03"), nomination.TargetMonth)

	_, err = f.service.ResolveSelection(ctx, "b")
	var wrong *WrongNomineeError
	require.ErrorAs(t, err, &wrong)
	assert.Equal(t, "a", wrong.Nomination.NominatedUserID)

	// Months further ahead are not selectable yet
	_, err = f.service.Nominate(ctx, NominateRequest{UserID: "c", Username: "c", Month: "2024-06"})
	require.NoError(t, err)
	_, err = f.service.ResolveSelection(ctx, "c")
	assert.ErrorIs(t, err, ErrWrongNominee)
}

func TestSelectGame(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, Policy{ExcludeRecent: 2})

	_, err := f.service.SelectGame(ctx, SelectRequest{UserID: "a", Username: "a", GameName: "Hades"})
	assert.ErrorIs(t, err, ErrNotNominated)

	_, err = f.service.Nominate(ctx, NominateRequest{UserID: "a", Username: "a"})
	require.NoError(t, err)

	_, err = f.service.SelectGame(ctx, SelectRequest{UserID: "a", Username: "a", GameName: "  "})
	assert.ErrorIs(t, err, ErrInvalidInput)

	game, err := f.service.SelectGame(ctx, SelectRequest{
		UserID:      "a",
		Username:    "a",
		GameName:    " Hades ",
		Description: "Defy the god of the dead",
		ImageURL:    "https://example.com/hades.png",
	})
	require.NoError(t, err)
	assert.Equal(t, "Hades", game.GameName)
	assert.Equal(t, calendar.Month("2024-03"), game.Month)
	assert.True(t, game.SelectedAt.Equal(f.now))
	require.Len(t, f.notifier.picks, 1)
	assert.Equal(t, game.ID, f.notifier.picks[0].ID)

	current, month, err := f.service.CurrentGame(ctx)
	require.NoError(t, err)
	assert.Equal(t, calendar.Month("2024-03"), month)
	require.NotNil(t, current)
	assert.Equal(t, "Hades", current.GameName)

	_, err = f.service.SelectGame(ctx, SelectRequest{UserID: "a", Username: "a", GameName: "Hades II"})
	assert.ErrorIs(t, err, ErrNotNominated)
}

func TestSelectGameWithPinnedMonth(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, Policy{})

	_, err := f.service.Nominate(ctx, NominateRequest{UserID: "a", Username: "a"})
	require.NoError(t, err)
	nomination, err := f.service.ResolveSelection(ctx, "a")
	require.NoError(t, err)

	// The month rolls over while the user is choosing
	f.now = time.Date(2024, 4, 1, 0, 5, 0, 0, time.UTC)
	game, err := f.service.SelectGame(ctx, SelectRequest{UserID: "a", Username: "a", Month: nomination.TargetMonth, GameName: "Hades"})
	require.NoError(t, err)
	assert.Equal(t, calendar.Month("2024-03"), game.Month)
}

func TestAutoNominate(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, Policy{ExcludeRecent: 1, ExcludedUserIDs: []string{"excluded"}})
	f.pick(t, "recent", "2024-02", "Celeste")

	candidates := []Candidate{
		{UserID: "robot", Username: "robot", Bot: true},
		{UserID: "recent", Username: "recent"},
		{UserID: "excluded", Username: "excluded"},
		{UserID: "newcomer", Username: "newcomer"},
		{UserID: "other", Username: "other"},
	}

	nomination, err := f.service.AutoNominate(ctx, "2024-04", candidates)
	require.NoError(t, err)
	require.NotNil(t, nomination)
	// The zero reader always draws the first eligible candidate
	assert.Equal(t, "newcomer", nomination.NominatedUserID)
	require.Len(t, f.notifier.nominations, 1)

	member, err := f.repo.GetMember(ctx, "newcomer")
	require.NoError(t, err)
	assert.NotNil(t, member, "drawn candidates join the rotation")

	again, err := f.service.AutoNominate(ctx, "2024-04", candidates)
	require.NoError(t, err)
	assert.Nil(t, again)
	assert.Len(t, f.notifier.nominations, 1)

	// A picked month is skipped too
	skipped, err := f.service.AutoNominate(ctx, "2024-02", candidates)
	require.NoError(t, err)
	assert.Nil(t, skipped)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.service.metrics.nominations.WithLabelValues("auto")))
}

func TestAutoNominateWithoutCandidates(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, Policy{})

	_, err := f.service.AutoNominate(ctx, "2024-04", []Candidate{{UserID: "robot", Bot: true}})
	assert.ErrorIs(t, err, ErrNoCandidates)

	active, err := f.repo.GetActiveNominationForMonth(ctx, "2024-04")
	require.NoError(t, err)
	assert.Nil(t, active)
}

func TestHistory(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, Policy{})
	months := []calendar.Month{"2023-10", "2023-11", "2023-12", "2024-01", "2024-02"}
	pickers := []string{"b", "a", "b", "c", "a"}
	for i, month := range months {
		f.pick(t, pickers[i], month, "game "+string(month))
	}

	_, err := f.service.History(ctx, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.service.History(ctx, MaxHistoryLimit+1)
	assert.ErrorIs(t, err, ErrInvalidInput)

	history, err := f.service.History(ctx, 2)
	require.NoError(t, err)
	require.Len(t, history.Games, 2)
	assert.Equal(t, calendar.Month("2024-02"), history.Games[0].Month)
	assert.Equal(t, calendar.Month("2024-01"), history.Games[1].Month)
	assert.Equal(t, 5, history.TotalGames)
	assert.Equal(t, 3, history.UniquePickers)
	assert.Equal(t, []PickerStat{
		{UserID: "a", Username: "a", Picks: 2},
		{UserID: "b", Username: "b", Picks: 2},
		{UserID: "c", Username: "c", Picks: 1},
	}, history.TopPickers)

	history, err = f.service.History(ctx, DefaultHistoryLimit)
	require.NoError(t, err)
	assert.Len(t, history.Games, 5)
}

func TestCalendar(t *testing.T) {
	ctx := context.Background()
	f := newServiceFixture(t, Policy{})
	f.pick(t, "a", "2024-03", "Hades")
	_, err := f.service.Nominate(ctx, NominateRequest{UserID: "b", Username: "b", Month: "2024-04"})
	require.NoError(t, err)

	_, err = f.service.Calendar(ctx, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.service.Calendar(ctx, MaxCalendarSpan+1)
	assert.ErrorIs(t, err, ErrInvalidInput)

	entries, err := f.service.Calendar(ctx, 3)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, calendar.Month("2024-03"), entries[0].Month)
	require.NotNil(t, entries[0].Game)
	assert.Equal(t, "Hades", entries[0].Game.GameName)
	assert.Nil(t, entries[0].Nomination)

	assert.Equal(t, calendar.Month("2024-04"), entries[1].Month)
	assert.Nil(t, entries[1].Game)
	require.NotNil(t, entries[1].Nomination)
	assert.Equal(t, "b", entries[1].Nomination.NominatedUserID)

	assert.Equal(t, calendar.Month("2024-05"), entries[2].Month)
	assert.Nil(t, entries[2].Game)
	assert.Nil(t, entries[2].Nomination)

	eligible, err := f.service.Eligible(ctx)
	require.NoError(t, err)
	assert.Len(t, eligible, 2)
}
