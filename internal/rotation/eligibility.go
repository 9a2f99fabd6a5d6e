package rotation

import (
	"sort"
)

// Candidate is a guild member that could be drawn by the auto-nomination,
// whether or not the rotation tracks them yet
type Candidate struct {
	UserID   string
	Username string
	Bot      bool
}

// Policy holds the fairness rules of the rotation
type Policy struct {
	// ExcludeRecent is how many of the latest pickers sit out the next nomination
	ExcludeRecent int
	// ExcludedUserIDs never get nominated (bot accounts and the like)
	ExcludedUserIDs []string
}

// RecentGames returns the n most recently picked games. Recency is the time of the
// pick event, so a month picked out of natural order still counts as recent;
// the month key breaks ties
func RecentGames(games []Game, n int) []Game {
	if n <= 0 || len(games) == 0 {
		return nil
	}
	sorted := make([]Game, len(games))
	copy(sorted, games)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].SelectedAt.Equal(sorted[j].SelectedAt) {
			return sorted[i].SelectedAt.After(sorted[j].SelectedAt)
		}
		return sorted[i].Month > sorted[j].Month
	})
	if n > len(sorted) {
		n = len(sorted)
	}
	return sorted[:n]
}

// RecentPickers returns the picker ids of the n most recent games, most recent first, without duplicates
func RecentPickers(games []Game, n int) []string {
	seen := map[string]struct{}{}
	pickers := []string{}
	for _, game := range RecentGames(games, n) {
		if _, ok := seen[game.PickerID]; ok {
			continue
		}
		seen[game.PickerID] = struct{}{}
		pickers = append(pickers, game.PickerID)
	}
	return pickers
}

func exclusionSet(games []Game, excludeCount int, extraExcludedIDs []string) map[string]struct{} {
	excluded := make(map[string]struct{}, excludeCount+len(extraExcludedIDs))
	for _, id := range RecentPickers(games, excludeCount) {
		excluded[id] = struct{}{}
	}
	for _, id := range extraExcludedIDs {
		excluded[id] = struct{}{}
	}
	return excluded
}

// EligibleMembers keeps the members flagged eligible that are neither among the
// pickers of the excludeCount most recent games nor statically excluded.
// The result may be empty
func EligibleMembers(allMembers []Member, recentGames []Game, excludeCount int, extraExcludedIDs []string) []Member {
	excluded := exclusionSet(recentGames, excludeCount, extraExcludedIDs)
	eligible := []Member{}
	for _, member := range allMembers {
		if !member.IsEligible {
			continue
		}
		if _, ok := excluded[member.UserID]; ok {
			continue
		}
		eligible = append(eligible, member)
	}
	return eligible
}

// FilterCandidates applies the same rules to an external pool. Bots are dropped,
// and so are tracked members whose eligibility flag is off
func FilterCandidates(candidates []Candidate, members []Member, recentGames []Game, excludeCount int, extraExcludedIDs []string) []Candidate {
	excluded := exclusionSet(recentGames, excludeCount, extraExcludedIDs)
	for _, member := range members {
		if !member.IsEligible {
			excluded[member.UserID] = struct{}{}
		}
	}
	eligible := []Candidate{}
	for _, candidate := range candidates {
		if candidate.Bot {
			continue
		}
		if _, ok := excluded[candidate.UserID]; ok {
			continue
		}
		eligible = append(eligible, candidate)
	}
	return eligible
}

// Pool returns who may be nominated next. When every flagged member is a recent
// picker the recency rule is dropped and the flagged members are returned, minus
// the static exclusions. It never falls back to members flagged ineligible.
// The boolean reports whether the recency rule was applied
func (p Policy) Pool(members []Member, games []Game) ([]Member, bool) {
	pool := EligibleMembers(members, games, p.ExcludeRecent, p.ExcludedUserIDs)
	if len(pool) > 0 {
		return pool, true
	}
	return EligibleMembers(members, nil, 0, p.ExcludedUserIDs), false
}

// Candidates filters the auto-nomination pool
func (p Policy) Candidates(candidates []Candidate, members []Member, games []Game) []Candidate {
	return FilterCandidates(candidates, members, games, p.ExcludeRecent, p.ExcludedUserIDs)
}

// Check is the soft fairness gate used before a manual nomination.
// It returns a *NotEligibleError when the user should not be nominated
func (p Policy) Check(userID string, members []Member, games []Game) error {
	recent := RecentGames(games, p.ExcludeRecent)
	pool, recencyApplied := p.Pool(members, games)
	notEligible := func(reason string) error {
		return &NotEligibleError{UserID: userID, Reason: reason, RecentPickers: recent, Eligible: pool}
	}

	for _, id := range p.ExcludedUserIDs {
		if id == userID {
			return notEligible("user is excluded from the rotation")
		}
	}
	for _, member := range members {
		if member.UserID == userID && !member.IsEligible {
			return notEligible("user opted out of the rotation")
		}
	}
	if !recencyApplied {
		return nil
	}
	for _, game := range recent {
		if game.PickerID == userID {
			return notEligible("user is one of the most recent pickers")
		}
	}
	return nil
}
