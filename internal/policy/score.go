package policy

import (
	"fmt"
	"time"

	"github.com/atttc/ladder/internal/domain"
)

// Point awards.
const (
	WinnerPoints        = 30
	ForfeitWinnerPoints = 30
	ForfeitLoserPoints  = 0
	LoserMinPoints      = 5
	LoserMaxPoints      = 20
	ChallengeBonus      = 2
	pointsPerGame       = 2
)

// Score rejections, in the order they are checked.
var (
	ErrFutureDate          = domain.ErrValidation("match date cannot be in the future")
	ErrSelfMatch           = domain.ErrValidation("players cannot play against themselves")
	ErrSetCountMismatch    = domain.ErrValidation("two players cannot play different number of sets")
	ErrTooManySets         = domain.ErrValidation("cannot play more than three sets")
	ErrTooFewSets          = domain.ErrValidation("must play at least two sets")
	ErrRetiredAndForfeited = domain.ErrValidation("cannot retire and forfeit at the same time")
	ErrForfeitSetCount     = domain.ErrValidation("forfeited match score must have exactly two sets")
	ErrForfeitScore        = domain.ErrValidation("forfeited match score must be 6-0, 6-0")
	ErrSetAfterDecided     = domain.ErrValidation("third set played after a player already won two sets")
)

// ErrInvalidSetScore reports a set that is not a legal tennis set result.
func ErrInvalidSetScore(c, o int) *domain.AppError {
	return domain.ErrValidation(fmt.Sprintf("invalid set score: %d-%d", c, o))
}

// ErrInvalidMatchScore reports a set split that does not produce a winner.
func ErrInvalidMatchScore(cSets, oSets int) *domain.AppError {
	return domain.ErrValidation(fmt.Sprintf("invalid match score: %d-%d in sets", cSets, oSets))
}

// setWinner returns +1 if the challenger took the set, -1 if the opponent did,
// and 0 if the score is not a legal set.
func setWinner(c, o int) int {
	switch {
	case c == 6 && o >= 0 && o <= 4, c == 7 && (o == 5 || o == 6):
		return 1
	case o == 6 && c >= 0 && c <= 4, o == 7 && (c == 5 || c == 6):
		return -1
	}
	return 0
}

// LoserPoints awards 2 points per game won, plus the challenge bonus, bounded to [5, 20].
func LoserPoints(games []int, challengeBonus bool) int {
	points := 0
	for _, g := range games {
		points += pointsPerGame * g
	}
	if challengeBonus {
		points += ChallengeBonus
	}
	if points > LoserMaxPoints {
		points = LoserMaxPoints
	}
	if points < LoserMinPoints {
		points = LoserMinPoints
	}
	return points
}

// ValidateAndScore checks a reported score against the league rules and computes
// the winner and both sides' points. A zero match date means today. It has no side effects.
func ValidateAndScore(in domain.MatchInput, today time.Time) (*domain.ScoreResult, error) {
	matchDate := in.Date
	if matchDate.IsZero() {
		matchDate = today
	}
	if domain.Day(matchDate).After(domain.Day(today)) {
		return nil, ErrFutureDate
	}
	if in.ChallengerID == in.OpponentID {
		return nil, ErrSelfMatch
	}
	c, o := in.ChallengerGames, in.OpponentGames
	if len(c) != len(o) {
		return nil, ErrSetCountMismatch
	}
	if len(c) > 3 {
		return nil, ErrTooManySets
	}
	if len(c) < 2 {
		return nil, ErrTooFewSets
	}
	if in.Retired && in.Forfeited {
		return nil, ErrRetiredAndForfeited
	}
	if in.Forfeited {
		return scoreForfeit(in)
	}

	var cSets, oSets int
	for i := range c {
		won := setWinner(c[i], o[i])
		if won == 0 {
			return nil, ErrInvalidSetScore(c[i], o[i])
		}
		if cSets == 2 || oSets == 2 {
			return nil, ErrSetAfterDecided
		}
		if won > 0 {
			cSets++
		} else {
			oSets++
		}
	}

	switch {
	case cSets == 2 && oSets < 2:
		return &domain.ScoreResult{
			WinnerID:         in.ChallengerID,
			ChallengerPoints: WinnerPoints,
			OpponentPoints:   LoserPoints(o, false),
		}, nil
	case oSets == 2 && cSets < 2:
		// The losing challenger earns the bonus only for a completed match.
		return &domain.ScoreResult{
			WinnerID:         in.OpponentID,
			ChallengerPoints: LoserPoints(c, !in.Retired),
			OpponentPoints:   WinnerPoints,
		}, nil
	}
	return nil, ErrInvalidMatchScore(cSets, oSets)
}

func scoreForfeit(in domain.MatchInput) (*domain.ScoreResult, error) {
	c, o := in.ChallengerGames, in.OpponentGames
	if len(c) != 2 {
		return nil, ErrForfeitSetCount
	}
	switch {
	case c[0] == 6 && c[1] == 6 && o[0] == 0 && o[1] == 0:
		return &domain.ScoreResult{WinnerID: in.ChallengerID, ChallengerPoints: ForfeitWinnerPoints, OpponentPoints: ForfeitLoserPoints}, nil
	case o[0] == 6 && o[1] == 6 && c[0] == 0 && c[1] == 0:
		return &domain.ScoreResult{WinnerID: in.OpponentID, ChallengerPoints: ForfeitLoserPoints, OpponentPoints: ForfeitWinnerPoints}, nil
	}
	return nil, ErrForfeitScore
}
