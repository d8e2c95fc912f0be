package domain

import "time"

// Phase countdowns.
const (
	ShowingDuration          = 30 * time.Second
	AnsweringDuration        = 20 * time.Second
	ShowingAnswerDuration    = 5 * time.Second
	MediaDownloadDuration    = 60 * time.Second
	StakeBiddingDuration     = 30 * time.Second
	SecretTransferDuration   = 30 * time.Second
	ThemeEliminationDuration = 30 * time.Second
	FinalBiddingDuration     = 45 * time.Second
	FinalAnsweringDuration   = 75 * time.Second
)

// Saved timer suffixes.
const (
	SavedTimerShowing = "showing"
)

// MinFinalBid is filed for finalists who never bid.
const MinFinalBid = 1

// EligibleAnswerers returns connected, unrestricted contestants who have
// neither answered nor skipped the current question.
func (g *Game) EligibleAnswerers() []*Player {
	var out []*Player
	for _, p := range g.ActivePlayers() {
		if p.IsRestricted || g.State.HasAnswered(p.Meta.ID) || g.State.HasSkipped(p.Meta.ID) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// CanBuzz reports whether playerID may request to answer now.
func (g *Game) CanBuzz(playerID int) bool {
	p := g.FindPlayer(playerID)
	if p == nil || !p.IsActivePlayer() || p.IsRestricted {
		return false
	}
	return !g.State.HasAnswered(playerID) && !g.State.HasSkipped(playerID)
}

// ExhaustedAfter reports whether no eligible answerer would remain once
// playerID has answered.
func (g *Game) ExhaustedAfter(playerID int) bool {
	for _, p := range g.EligibleAnswerers() {
		if p.Meta.ID != playerID {
			return false
		}
	}
	return true
}

// QuestionPrice returns the score at stake for the current question and
// answering player, honouring stake bids.
func (g *Game) QuestionPrice() int {
	q, _ := g.CurrentQuestion()
	if q == nil {
		return 0
	}
	if d := g.State.StakeQuestionData; d != nil && d.WinnerPlayerID != nil {
		return d.WinningBid()
	}
	return q.Price
}

// ScoreDelta returns the score change for an answer on the current question.
func (g *Game) ScoreDelta(result AnswerResultType) int {
	q, _ := g.CurrentQuestion()
	if q == nil {
		return 0
	}
	price := g.QuestionPrice()
	switch result {
	case AnswerCorrect:
		if q.Type == QuestionTypeNoRisk {
			return price * 2
		}
		return price
	case AnswerWrong:
		if q.Type == QuestionTypeNoRisk {
			return 0
		}
		return -price
	}
	return 0
}

// FinalEligible returns contestants allowed into the final round: connected,
// with a positive score, lowest score first.
func (g *Game) FinalEligible() []*Player {
	var out []*Player
	for _, p := range g.ActivePlayers() {
		if p.Score > 0 {
			out = append(out, p)
		}
	}
	// Stable insertion sort by score keeps seat order for ties.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Score < out[j-1].Score; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// RemainingThemes returns the final round themes not eliminated yet.
func (g *Game) RemainingThemes() []*Theme {
	round := g.CurrentRound()
	if round == nil {
		return nil
	}
	var out []*Theme
	for i := range round.Themes {
		t := &round.Themes[i]
		if g.State.FinalRoundData != nil && g.State.FinalRoundData.IsEliminated(t.ID) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// FirstTurnPlayer picks who chooses first: the lowest seat among contestants.
func (g *Game) FirstTurnPlayer() *int {
	players := g.ActivePlayers()
	if len(players) == 0 {
		return nil
	}
	id := players[0].Meta.ID
	return &id
}
