package domain_test

import (
	"testing"

	"github.com/dom/quiz-engine/internal/domain"
	"github.com/dom/quiz-engine/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stakeGame(scores ...int) *domain.Game {
	b := testutil.NewGameBuilder().WithShowman(1)
	for i, score := range scores {
		b.WithPlayer(i+2, i, score)
	}
	return b.Started().Build()
}

func stakeQuestion(g *domain.Game) *domain.Question {
	q, _ := g.CurrentRound().FindQuestion(testutil.QStake200)
	return q
}

func TestNewStakeQuestion_OrderStartsAtPicker(t *testing.T) {
	g := stakeGame(500, 500, 500)

	d := g.NewStakeQuestion(3, stakeQuestion(g))

	assert.Equal(t, []int{3, 4, 2}, d.BiddingOrder)
	require.NotNil(t, d.CurrentBidder())
	assert.Equal(t, 3, *d.CurrentBidder())
	assert.Equal(t, 200, d.MinBid())
	assert.Empty(t, d.Bids)
}

func TestNewStakeQuestion_PoorPickerGoesAllIn(t *testing.T) {
	g := stakeGame(150, 500, 0)

	d := g.NewStakeQuestion(2, stakeQuestion(g))

	assert.Equal(t, domain.StakeBid{Amount: 150, Type: domain.StakeBidAllIn}, d.Bids[2])
	require.NotNil(t, d.LeaderID)
	assert.Equal(t, 2, *d.LeaderID)
	require.NotNil(t, d.CurrentBidder())
	assert.Equal(t, 3, *d.CurrentBidder())
	assert.False(t, d.IsPhaseComplete)
}

func TestPlaceStakeBid(t *testing.T) {
	t.Run("out of turn", func(t *testing.T) {
		g := stakeGame(500, 500)
		d := g.NewStakeQuestion(2, stakeQuestion(g))

		_, err := g.PlaceStakeBid(d, 3, domain.StakeBidNormal, 300)
		ce, ok := domain.AsClientError(err)
		require.True(t, ok)
		assert.Equal(t, domain.ErrCodeNotYourTurn, ce.Code)
	})

	t.Run("below minimum", func(t *testing.T) {
		g := stakeGame(500, 500)
		d := g.NewStakeQuestion(2, stakeQuestion(g))

		_, err := g.PlaceStakeBid(d, 2, domain.StakeBidNormal, 150)
		ce, ok := domain.AsClientError(err)
		require.True(t, ok)
		assert.Equal(t, domain.ErrCodeInvalidBid, ce.Code)
	})

	t.Run("above score", func(t *testing.T) {
		g := stakeGame(500, 500)
		d := g.NewStakeQuestion(2, stakeQuestion(g))

		_, err := g.PlaceStakeBid(d, 2, domain.StakeBidNormal, 600)
		assert.Equal(t, domain.KindClient, domain.KindOf(err))
	})

	t.Run("bid equal to score is all-in", func(t *testing.T) {
		g := stakeGame(500, 500)
		d := g.NewStakeQuestion(2, stakeQuestion(g))

		out, err := g.PlaceStakeBid(d, 2, domain.StakeBidNormal, 500)
		require.NoError(t, err)
		assert.Equal(t, domain.StakeBidAllIn, out.Bid.Type)
	})

	t.Run("max price caps bids", func(t *testing.T) {
		g := stakeGame(1000, 1000)
		q := stakeQuestion(g)
		limit := 400
		q.MaxPrice = &limit
		d := g.NewStakeQuestion(2, q)

		_, err := g.PlaceStakeBid(d, 2, domain.StakeBidNormal, 500)
		assert.Error(t, err)

		out, err := g.PlaceStakeBid(d, 2, domain.StakeBidAllIn, 0)
		require.NoError(t, err)
		assert.Equal(t, 400, out.Bid.Amount)
		assert.True(t, out.Complete, "nobody can beat the capped all-in")
	})
}

func TestPlaceStakeBid_RotationAndAutoPass(t *testing.T) {
	g := stakeGame(150, 500, 0)
	d := g.NewStakeQuestion(2, stakeQuestion(g))

	out, err := g.PlaceStakeBid(d, 3, domain.StakeBidNormal, 300)
	require.NoError(t, err)

	assert.ElementsMatch(t, []int{4, 2}, out.AutoPassed)
	assert.True(t, out.Complete)
	require.NotNil(t, d.WinnerPlayerID)
	assert.Equal(t, 3, *d.WinnerPlayerID)
	assert.Equal(t, 300, d.WinningBid())
	assert.Nil(t, d.CurrentBidder())
}

func TestPlaceStakeBid_EverybodyPasses(t *testing.T) {
	g := stakeGame(500, 500)
	d := g.NewStakeQuestion(2, stakeQuestion(g))

	out, err := g.PlaceStakeBid(d, 2, domain.StakeBidPass, 0)
	require.NoError(t, err)
	assert.False(t, out.Complete)

	out, err = g.PlaceStakeBid(d, 3, domain.StakeBidPass, 0)
	require.NoError(t, err)
	assert.True(t, out.Complete)

	require.NotNil(t, d.WinnerPlayerID)
	assert.Equal(t, 2, *d.WinnerPlayerID, "the picker plays at nominal")
	assert.Equal(t, 200, d.WinningBid())
}

func TestPlaceStakeBid_AfterCompletion(t *testing.T) {
	g := stakeGame(500)
	d := g.NewStakeQuestion(2, stakeQuestion(g))
	_, err := g.PlaceStakeBid(d, 2, domain.StakeBidNormal, 200)
	require.NoError(t, err)
	require.True(t, d.IsPhaseComplete)

	_, err = g.PlaceStakeBid(d, 2, domain.StakeBidNormal, 300)
	ce, ok := domain.AsClientError(err)
	require.True(t, ok)
	assert.Equal(t, domain.ErrCodeInvalidPhase, ce.Code)
}

func TestReconcileStake_CurrentBidderLeft(t *testing.T) {
	g := stakeGame(500, 500, 500)
	d := g.NewStakeQuestion(2, stakeQuestion(g))
	_, err := g.PlaceStakeBid(d, 2, domain.StakeBidNormal, 200)
	require.NoError(t, err)
	require.Equal(t, 3, *d.CurrentBidder())

	g.FindPlayer(3).GameStatus = domain.PlayerDisconnected
	passed := g.ReconcileStake(d)

	assert.Equal(t, []int{3}, passed)
	require.NotNil(t, d.CurrentBidder())
	assert.Equal(t, 4, *d.CurrentBidder())
}

func TestScoreDelta(t *testing.T) {
	tests := []struct {
		name     string
		question int
		result   domain.AnswerResultType
		want     int
	}{
		{"simple correct", testutil.QSimple100, domain.AnswerCorrect, 100},
		{"simple wrong", testutil.QSimple100, domain.AnswerWrong, -100},
		{"skip is free", testutil.QSimple100, domain.AnswerSkip, 0},
		{"no-risk correct doubles", testutil.QNoRisk200, domain.AnswerCorrect, 400},
		{"no-risk wrong costs nothing", testutil.QNoRisk200, domain.AnswerWrong, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := tt.question
			g := testutil.NewGameBuilder().WithPlayer(2, 0, 0).Started().
				WithState(func(s *domain.GameState) { s.CurrentQuestion = &id }).Build()
			assert.Equal(t, tt.want, g.ScoreDelta(tt.result))
		})
	}
}
