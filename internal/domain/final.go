package domain

// NewFinalRoundData seats the finalists: contestants with a positive score,
// lowest score eliminating first.
func (g *Game) NewFinalRoundData() *FinalRoundData {
	finalists := g.FinalEligible()
	order := make([]int, 0, len(finalists))
	for _, p := range finalists {
		order = append(order, p.Meta.ID)
	}
	return &FinalRoundData{
		TurnOrder: order,
		Bids:      map[int]int{},
	}
}

// FinalParticipants returns the finalists still connected.
func (g *Game) FinalParticipants(d *FinalRoundData) []int {
	var out []int
	for _, id := range d.TurnOrder {
		if p := g.FindPlayer(id); p != nil && p.IsActivePlayer() {
			out = append(out, id)
		}
	}
	return out
}

func (g *Game) AllFinalBidsIn(d *FinalRoundData) bool {
	for _, id := range g.FinalParticipants(d) {
		if _, ok := d.Bids[id]; !ok {
			return false
		}
	}
	return true
}

func (g *Game) AllFinalAnswersIn(d *FinalRoundData) bool {
	for _, id := range g.FinalParticipants(d) {
		if d.FindAnswer(id) == nil {
			return false
		}
	}
	return true
}

// FinalMaxBid is the most a finalist may wager.
func (g *Game) FinalMaxBid(playerID int) int {
	p := g.FindPlayer(playerID)
	if p == nil {
		return 0
	}
	return max(p.Score, MinFinalBid)
}

// PlaceFinalBid validates and records a wager.
func (g *Game) PlaceFinalBid(d *FinalRoundData, playerID, amount int) error {
	if !d.IsParticipant(playerID) {
		return NewClientError(ErrCodeWrongRole, "you are not playing the final round")
	}
	if _, ok := d.Bids[playerID]; ok {
		return NewClientError(ErrCodeInvalidBid, "bid already placed")
	}
	if limit := g.FinalMaxBid(playerID); amount < MinFinalBid || amount > limit {
		return NewClientError(ErrCodeInvalidBid, "bid must be between %d and %d", MinFinalBid, limit)
	}
	if d.Bids == nil {
		d.Bids = map[int]int{}
	}
	d.Bids[playerID] = amount
	return nil
}

// FillMissingFinalBids files the minimum bid for every finalist without one.
func (g *Game) FillMissingFinalBids(d *FinalRoundData) map[int]int {
	if d.Bids == nil {
		d.Bids = map[int]int{}
	}
	filled := map[int]int{}
	for _, id := range d.TurnOrder {
		if _, ok := d.Bids[id]; !ok {
			d.Bids[id] = MinFinalBid
			filled[id] = MinFinalBid
		}
	}
	return filled
}

// SubmitFinalAnswer records a finalist's answer for review.
func (g *Game) SubmitFinalAnswer(d *FinalRoundData, playerID int, text string) error {
	if !d.IsParticipant(playerID) {
		return NewClientError(ErrCodeWrongRole, "you are not playing the final round")
	}
	if d.FindAnswer(playerID) != nil {
		return NewClientError(ErrCodeAlreadyAnswered, "answer already submitted")
	}
	d.Answers = append(d.Answers, FinalAnswer{PlayerID: playerID, Text: text})
	return nil
}

// FileAutoLossAnswers adds an empty answer, already judged wrong, for every
// finalist who did not answer. The lost bid is charged immediately.
func (g *Game) FileAutoLossAnswers(d *FinalRoundData) []FinalAnswer {
	var filed []FinalAnswer
	for _, id := range d.TurnOrder {
		if d.FindAnswer(id) != nil {
			continue
		}
		wrong := false
		a := FinalAnswer{
			PlayerID:   id,
			IsAutoLoss: true,
			Reviewed:   true,
			IsCorrect:  &wrong,
			ScoreDelta: -d.Bids[id],
		}
		if p := g.FindPlayer(id); p != nil {
			p.Score += a.ScoreDelta
		}
		d.Answers = append(d.Answers, a)
		filed = append(filed, a)
	}
	return filed
}

// ReviewFinalAnswer judges one answer and applies the wager.
func (g *Game) ReviewFinalAnswer(d *FinalRoundData, playerID int, correct bool) (*FinalAnswer, error) {
	a := d.FindAnswer(playerID)
	if a == nil {
		return nil, NewClientError(ErrCodePlayerNotFound, "no answer from player %d", playerID)
	}
	if a.Reviewed {
		return nil, NewClientError(ErrCodeAlreadyReviewed, "answer of player %d already reviewed", playerID)
	}
	bid := d.Bids[playerID]
	a.Reviewed = true
	a.IsCorrect = &correct
	if correct {
		a.ScoreDelta = bid
	} else {
		a.ScoreDelta = -bid
	}
	if p := g.FindPlayer(playerID); p != nil {
		p.Score += a.ScoreDelta
	}
	return a, nil
}

// EliminateTheme removes a theme on behalf of the current turn player and
// passes the turn to the next connected finalist.
func (g *Game) EliminateTheme(d *FinalRoundData, themeID int) error {
	round := g.CurrentRound()
	if round == nil || round.FindTheme(themeID) == nil {
		return NewClientError(ErrCodeThemeNotFound, "theme %d not found", themeID)
	}
	if d.IsEliminated(themeID) {
		return NewClientError(ErrCodeThemeNotFound, "theme %d already eliminated", themeID)
	}
	if len(g.RemainingThemes()) <= 1 {
		return NewClientError(ErrCodeInvalidPhase, "the last theme cannot be eliminated")
	}
	d.EliminatedThemes = append(d.EliminatedThemes, themeID)
	g.AdvanceFinalTurn(d)
	return nil
}

// AdvanceFinalTurn moves CurrentTurnIndex to the next connected finalist.
func (g *Game) AdvanceFinalTurn(d *FinalRoundData) {
	n := len(d.TurnOrder)
	for k := 1; k <= n; k++ {
		idx := (d.CurrentTurnIndex + k) % n
		if p := g.FindPlayer(d.TurnOrder[idx]); p != nil && p.IsActivePlayer() {
			d.CurrentTurnIndex = idx
			break
		}
	}
	g.State.CurrentTurnPlayerID = d.CurrentTurnPlayer()
}

// FinalQuestion returns the question of the last remaining theme.
func (g *Game) FinalQuestion() (*Question, *Theme) {
	themes := g.RemainingThemes()
	if len(themes) != 1 || len(themes[0].Questions) == 0 {
		return nil, nil
	}
	return &themes[0].Questions[0], themes[0]
}
