package transition

// Handlers returns one instance of every game edge.
func Handlers() []Handler {
	return []Handler{
		newStartGame(),
		newStartFinal(),
		newPickSimple(),
		newPickStake(),
		newPickSecret(),
		newMediaReady(),
		newBuzz(),
		newShowingTimeout(),
		newAnswerRetry(),
		newAnswerClose(),
		newStakeWinner(),
		newSecretTransfer(),
		newNextQuestion(),
		newNextRound(),
		newEnterFinalRound(),
		newFinishAfterRound(),
		newThemeChosen(),
		newFinalBidsClosed(),
		newFinalAnswersClosed(),
		newFinalReviewed(),
	}
}
