package domain

// NewStakeQuestion opens bidding on q. The bidding order starts at the picker
// and follows seat order. A picker who cannot afford the nominal price is
// placed an automatic ALL_IN bid of what they have and the turn moves on.
func (g *Game) NewStakeQuestion(pickerID int, q *Question) *StakeQuestionData {
	order := g.rotatedFrom(pickerID)
	d := &StakeQuestionData{
		PickerPlayerID: pickerID,
		QuestionID:     q.ID,
		NominalPrice:   q.Price,
		MaxPrice:       q.MaxPrice,
		BiddingOrder:   order,
		Bids:           map[int]StakeBid{},
	}
	if len(order) == 0 {
		g.FinishStake(d)
		return d
	}

	picker := g.FindPlayer(pickerID)
	if picker != nil && picker.Score < q.Price {
		amount := max(picker.Score, 0)
		d.Bids[pickerID] = StakeBid{Amount: amount, Type: StakeBidAllIn}
		d.HighestBid = &amount
		leader := pickerID
		d.LeaderID = &leader
		g.advanceStakeBidder(d)
	}
	return d
}

// rotatedFrom lists active players in seat order starting at playerID.
// If playerID is not an active player the list starts at the lowest seat.
func (g *Game) rotatedFrom(playerID int) []int {
	ids := g.ActivePlayerIDs()
	start := 0
	for i, id := range ids {
		if id == playerID {
			start = i
			break
		}
	}
	out := make([]int, 0, len(ids))
	out = append(out, ids[start:]...)
	return append(out, ids[:start]...)
}

// MinBid is the lowest acceptable bid right now.
func (d *StakeQuestionData) MinBid() int {
	if d.HighestBid == nil {
		return d.NominalPrice
	}
	return max(d.NominalPrice, *d.HighestBid+1)
}

// StakeMaxBid is the most playerID may bid: their score, capped by the
// question's max price.
func (g *Game) StakeMaxBid(d *StakeQuestionData, playerID int) int {
	p := g.FindPlayer(playerID)
	if p == nil {
		return 0
	}
	limit := p.Score
	if d.MaxPrice != nil && *d.MaxPrice < limit {
		limit = *d.MaxPrice
	}
	return max(limit, 0)
}

// CanOutbid reports whether playerID is still able to beat the current bid.
func (g *Game) CanOutbid(d *StakeQuestionData, playerID int) bool {
	p := g.FindPlayer(playerID)
	if p == nil || !p.IsActivePlayer() {
		return false
	}
	return g.StakeMaxBid(d, playerID) >= d.MinBid()
}

// StakeBiddingComplete reports whether no one but the leader can still bid.
func (g *Game) StakeBiddingComplete(d *StakeQuestionData) bool {
	for _, id := range d.BiddingOrder {
		if d.HasPassed(id) || (d.LeaderID != nil && *d.LeaderID == id) {
			continue
		}
		if g.CanOutbid(d, id) {
			return false
		}
	}
	return true
}

// StakeBidOutcome describes what a bid changed.
type StakeBidOutcome struct {
	Bid        StakeBid
	AutoPassed []int
	Complete   bool
}

// PlaceStakeBid validates and records a bid by the current bidder, then
// rotates to the next player who can still out-bid the leader.
func (g *Game) PlaceStakeBid(d *StakeQuestionData, playerID int, bidType StakeBidType, amount int) (*StakeBidOutcome, error) {
	if d.IsPhaseComplete {
		return nil, NewClientError(ErrCodeInvalidPhase, "bidding is over")
	}
	current := d.CurrentBidder()
	if current == nil || *current != playerID {
		return nil, NewClientError(ErrCodeNotYourTurn, "it is not your turn to bid")
	}

	limit := g.StakeMaxBid(d, playerID)
	var bid StakeBid
	switch bidType {
	case StakeBidPass:
		bid = StakeBid{Type: StakeBidPass}
	case StakeBidAllIn:
		if limit < d.MinBid() {
			return nil, NewClientError(ErrCodeInvalidBid, "all-in of %d is below the minimum bid %d", limit, d.MinBid())
		}
		bid = StakeBid{Amount: limit, Type: StakeBidAllIn}
	case StakeBidNormal, "":
		if amount < d.MinBid() {
			return nil, NewClientError(ErrCodeInvalidBid, "bid %d is below the minimum bid %d", amount, d.MinBid())
		}
		if amount > limit {
			return nil, NewClientError(ErrCodeInvalidBid, "bid %d exceeds the maximum bid %d", amount, limit)
		}
		bid = StakeBid{Amount: amount, Type: StakeBidNormal}
		if amount == limit {
			bid.Type = StakeBidAllIn
		}
	default:
		return nil, NewClientError(ErrCodeInvalidBid, "unknown bid type %q", bidType)
	}

	d.ensureBids()
	d.Bids[playerID] = bid
	if bid.Type == StakeBidPass {
		d.PassedPlayers = append(d.PassedPlayers, playerID)
	} else {
		amt := bid.Amount
		d.HighestBid = &amt
		leader := playerID
		d.LeaderID = &leader
	}

	out := &StakeBidOutcome{Bid: bid}
	out.AutoPassed = g.advanceStakeBidder(d)
	out.Complete = d.IsPhaseComplete
	return out, nil
}

// advanceStakeBidder moves the turn to the next player in the lap who can
// still out-bid the leader. Players who cannot are passed automatically.
// When nobody is left the bidding is finished.
func (g *Game) advanceStakeBidder(d *StakeQuestionData) []int {
	d.ensureBids()
	var autoPassed []int
	n := len(d.BiddingOrder)
	for k := 1; k <= n; k++ {
		idx := (d.CurrentBidderIndex + k) % n
		id := d.BiddingOrder[idx]
		if d.HasPassed(id) || (d.LeaderID != nil && *d.LeaderID == id) {
			continue
		}
		if !g.CanOutbid(d, id) {
			d.PassedPlayers = append(d.PassedPlayers, id)
			d.Bids[id] = StakeBid{Type: StakeBidPass}
			autoPassed = append(autoPassed, id)
			continue
		}
		d.CurrentBidderIndex = idx
		return autoPassed
	}
	g.FinishStake(d)
	return autoPassed
}

// FinishStake closes bidding. The leader wins; without any bid the picker
// plays for the nominal price.
func (g *Game) FinishStake(d *StakeQuestionData) {
	d.ensureBids()
	d.IsPhaseComplete = true
	if d.LeaderID != nil {
		winner := *d.LeaderID
		d.WinnerPlayerID = &winner
		return
	}
	winner := d.PickerPlayerID
	d.WinnerPlayerID = &winner
	d.Bids[winner] = StakeBid{Amount: d.NominalPrice, Type: StakeBidNormal}
	nominal := d.NominalPrice
	d.HighestBid = &nominal
}

// WinningBid returns the amount the winner plays for.
func (d *StakeQuestionData) WinningBid() int {
	if d.WinnerPlayerID == nil {
		return d.NominalPrice
	}
	if bid, ok := d.Bids[*d.WinnerPlayerID]; ok && bid.Type != StakeBidPass {
		return bid.Amount
	}
	return d.NominalPrice
}

// ReconcileStake passes a current bidder who can no longer bid, e.g. after
// leaving the game, and moves the turn on.
func (g *Game) ReconcileStake(d *StakeQuestionData) []int {
	if d.IsPhaseComplete {
		return nil
	}
	current := d.CurrentBidder()
	if current == nil {
		g.FinishStake(d)
		return nil
	}
	if g.CanOutbid(d, *current) || (d.LeaderID != nil && *d.LeaderID == *current) {
		if g.StakeBiddingComplete(d) {
			g.FinishStake(d)
		}
		return nil
	}
	d.ensureBids()
	d.PassedPlayers = append(d.PassedPlayers, *current)
	d.Bids[*current] = StakeBid{Type: StakeBidPass}
	return append([]int{*current}, g.advanceStakeBidder(d)...)
}

func (d *StakeQuestionData) ensureBids() {
	if d.Bids == nil {
		d.Bids = map[int]StakeBid{}
	}
}
