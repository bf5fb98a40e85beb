package cardtable

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weedbox/cardtable/session"
)

func currentPlayerID(t *testing.T, te TableEngine) string {
	t.Helper()
	table := te.GetTable()
	require.Equal(t, TableStateStatus_PlayerTurn, table.State.Status)
	require.NotEqual(t, UnsetValue, table.State.CurrentSeatIdx)
	return table.State.Seats[table.State.CurrentSeatIdx].PlayerID
}

func otherPlayerID(current string) string {
	if current == "alice" {
		return "bob"
	}
	return "alice"
}

func assertTotalBalance(t *testing.T, dir *session.Directory, expected int64, playerIDs ...string) {
	t.Helper()
	total := int64(0)
	for _, id := range playerIDs {
		balance, err := dir.Balance(id)
		require.NoError(t, err)
		total += balance
	}
	assert.Equal(t, expected, total)
}

func TestPoker_ReadyWithTwoPlayers(t *testing.T) {
	te, _, _ := newTestTable(t, newTestOptions(), newTestMeta(GameType_Poker), "", "alice")

	table := te.GetTable()
	assert.Equal(t, 2, table.Meta.MinPlayerCount)
	assert.Equal(t, TableStateStatus_WaitingForPlayers, table.State.Status)

	require.NoError(t, te.PlayerJoin(JoinPlayer{PlayerID: "bob"}))
	assert.Equal(t, TableStateStatus_ReadyToStart, te.GetTable().State.Status)
}

func TestPoker_StartRoundBuysIn(t *testing.T) {
	te, dir, _ := newTestTable(t, newTestOptions(), newTestMeta(GameType_Poker), "", "alice", "bob")

	assert.ErrorIs(t, te.StartRound("bob"), ErrTableNotHost)
	require.NoError(t, te.StartRound("alice"))

	table := te.GetTable()
	assert.Equal(t, TableStateStatus_PlayerTurn, table.State.Status)
	assert.Equal(t, 1, table.State.RoundCount)
	assert.Equal(t, []string{"alice", "bob"}, table.State.GamePlayerIDs)
	require.NotNil(t, table.State.PokerState)
	for _, seat := range table.State.Seats {
		assert.Equal(t, int64(testStartingBalance), seat.Bet)
		assert.Equal(t, SeatStatus_Active, seat.Status)
	}

	assertBalance(t, dir, "alice", 0)
	assertBalance(t, dir, "bob", 0)

	view := NewTableView(table)
	require.NotNil(t, view.Poker)
	assert.Equal(t, int64(15), view.Poker.Pot)
	assert.Equal(t, currentPlayerID(t, te), view.Poker.CurrentID)
}

func TestPoker_FoldSettlesHand(t *testing.T) {
	te, dir, recorder := newTestTable(t, newTestOptions(), newTestMeta(GameType_Poker), "", "alice", "bob")
	require.NoError(t, te.StartRound("alice"))

	current := currentPlayerID(t, te)
	other := otherPlayerID(current)

	assert.ErrorIs(t, te.PlayerFold(other), ErrTableNotYourTurn)
	assert.ErrorIs(t, te.PlayerFold("carol"), ErrTablePlayerNotFound)

	require.NoError(t, te.PlayerFold(current))
	assert.Equal(t, TableStateStatus_Results, te.GetTable().State.Status)

	// heads-up the small blind acts first and folds its 5 chips to the big blind
	folded := recorder.result(current)
	require.NotNil(t, folded)
	assert.Equal(t, SeatResult_Fold, folded.Result)
	assert.Equal(t, int64(testStartingBalance), folded.Bet)
	assert.Equal(t, int64(testStartingBalance-5), folded.Payout)
	assert.Equal(t, int64(-5), folded.Winnings)

	winner := recorder.result(other)
	require.NotNil(t, winner)
	assert.Equal(t, SeatResult_Win, winner.Result)
	assert.Equal(t, int64(testStartingBalance), winner.Bet)
	assert.Equal(t, int64(5), winner.Winnings)

	assertTotalBalance(t, dir, 2*testStartingBalance, "alice", "bob")
	assertBalance(t, dir, current, testStartingBalance-5)
	assertBalance(t, dir, other, testStartingBalance+5)
}

func TestPoker_CallDownToShowdown(t *testing.T) {
	te, dir, recorder := newTestTable(t, newTestOptions(), newTestMeta(GameType_Poker), "", "alice", "bob")
	require.NoError(t, te.StartRound("alice"))

	for i := 0; te.GetTable().State.Status == TableStateStatus_PlayerTurn; i++ {
		require.Less(t, i, 20)
		require.NoError(t, te.PlayerCall(currentPlayerID(t, te)))
	}

	assert.Equal(t, TableStateStatus_Results, te.GetTable().State.Status)
	assert.Equal(t, 2, recorder.resultCount())
	assert.Equal(t, recorder.result("alice").Winnings, -recorder.result("bob").Winnings)

	// the big blind checks every street, so the pot is 20 and the showdown moves 10 or splits
	assert.Contains(t, []int64{-10, 0, 10}, recorder.result("alice").Winnings)
	assert.Equal(t, int64(testStartingBalance), recorder.result("alice").Bet)
	assertTotalBalance(t, dir, 2*testStartingBalance, "alice", "bob")
}

func TestPoker_AbortRoundRefundsBuyIns(t *testing.T) {
	te, dir, recorder := newTestTable(t, newTestOptions(), newTestMeta(GameType_Poker), "", "alice", "bob")
	require.NoError(t, te.StartRound("alice"))
	assertBalance(t, dir, "alice", 0)

	pe := te.(*pokerEngine)
	func() {
		defer pe.flush()
		pe.lock.Lock()
		defer pe.lock.Unlock()
		pe.abortRound(ErrPokerStalled)
	}()

	table := te.GetTable()
	assert.Equal(t, TableStateStatus_ReadyToStart, table.State.Status)
	assert.Nil(t, table.State.PokerState)
	assert.Empty(t, table.State.GamePlayerIDs)
	for _, seat := range table.State.Seats {
		assert.Zero(t, seat.Bet)
	}

	assertBalance(t, dir, "alice", testStartingBalance)
	assertBalance(t, dir, "bob", testStartingBalance)
	recorder.mu.Lock()
	assert.Contains(t, recorder.errors, ErrPokerStalled)
	recorder.mu.Unlock()

	// the table is playable again
	require.NoError(t, te.StartRound("alice"))
	assert.Equal(t, TableStateStatus_PlayerTurn, te.GetTable().State.Status)
}

func TestPoker_RoundResetsToReady(t *testing.T) {
	options := newTestOptions()
	options.ResultDisplayDuration = 50 * time.Millisecond
	te, _, _ := newTestTable(t, options, newTestMeta(GameType_Poker), "", "alice", "bob")

	require.NoError(t, te.StartRound("alice"))
	require.NoError(t, te.PlayerFold(currentPlayerID(t, te)))

	assert.Eventually(t, func() bool {
		return te.GetTable().State.Status == TableStateStatus_ReadyToStart
	}, 2*time.Second, 10*time.Millisecond)

	table := te.GetTable()
	assert.Nil(t, table.State.PokerState)
	assert.Empty(t, table.State.GamePlayerIDs)
	assert.Zero(t, table.State.Seats[0].Bet)
}

func TestPoker_LeaveMidHandCashesOut(t *testing.T) {
	te, dir, recorder := newTestTable(t, newTestOptions(), newTestMeta(GameType_Poker), "", "alice", "bob")
	require.NoError(t, te.StartRound("alice"))

	current := currentPlayerID(t, te)
	other := otherPlayerID(current)

	require.NoError(t, te.PlayerLeave(current))

	assert.Equal(t, TableStateStatus_Results, te.GetTable().State.Status)
	assert.Nil(t, recorder.result(current))
	assert.Equal(t, SeatResult_Win, recorder.result(other).Result)
	assertTotalBalance(t, dir, 2*testStartingBalance, "alice", "bob")
}

func TestPoker_CloseTableRefundsBuyIn(t *testing.T) {
	te, dir, _ := newTestTable(t, newTestOptions(), newTestMeta(GameType_Poker), "", "alice", "bob")
	require.NoError(t, te.StartRound("alice"))

	require.NoError(t, te.CloseTable())
	assertBalance(t, dir, "alice", testStartingBalance)
	assertBalance(t, dir, "bob", testStartingBalance)
}

func TestPoker_RejectsBlackjackActions(t *testing.T) {
	te, _, _ := newTestTable(t, newTestOptions(), newTestMeta(GameType_Poker), "", "alice", "bob")

	assert.ErrorIs(t, te.PlayerBet("alice", 10), ErrTableInvalidAction)
	assert.ErrorIs(t, te.PlayerCall("alice"), ErrTableInvalidState)

	require.NoError(t, te.StartRound("alice"))
	current := currentPlayerID(t, te)
	assert.ErrorIs(t, te.PlayerHit(current), ErrTableInvalidAction)
	assert.ErrorIs(t, te.PlayerStand(current), ErrTableInvalidAction)
}

func TestNewPositions(t *testing.T) {
	assert.Empty(t, newPositions(1))
	assert.Equal(t, [][]string{{Position_Dealer, Position_SB}, {Position_BB}}, newPositions(2))

	positions := newPositions(4)
	assert.Len(t, positions, 4)
	assert.Equal(t, []string{Position_BB}, positions[2])
	assert.Empty(t, positions[3])
}

func TestRotateIntArray(t *testing.T) {
	source := []int{0, 1, 2, 3, 4}
	assert.Equal(t, []int{2, 3, 4, 0, 1}, rotateIntArray(source, 2))
	assert.Equal(t, []int{0, 1, 2, 3, 4}, rotateIntArray(source, 5))
	assert.Equal(t, []int{0, 1, 2, 3, 4}, source)
}
