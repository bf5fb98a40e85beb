package cardtable

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weedbox/cardtable/card"
	"github.com/weedbox/cardtable/session"
)

// Cards are dealt one per betting seat then one to the dealer, twice, followed by hits and dealer draws.

func TestBlackjack_TwoSeatRound(t *testing.T) {
	te, dir, recorder := newTestTable(t, newTestOptions(), newTestMeta(GameType_Blackjack),
		"TS TD 5S 9H 7C 3D TC", "alice", "bob")

	require.NoError(t, te.PlayerBet("alice", 10))
	require.NoError(t, te.PlayerBet("bob", 20))
	assert.Equal(t, TableStateStatus_ReadyToStart, te.GetTable().State.Status)
	assertBalance(t, dir, "alice", 990)
	assertBalance(t, dir, "bob", 980)

	require.NoError(t, te.StartRound("alice"))
	table := te.GetTable()
	assert.Equal(t, TableStateStatus_PlayerTurn, table.State.Status)
	assert.Equal(t, 0, table.State.CurrentSeatIdx)
	assert.Equal(t, SeatStatus_Active, table.State.Seats[0].Status)
	assert.Equal(t, 19, table.State.Seats[0].Hand.Score())
	assert.Equal(t, 17, table.State.Seats[1].Hand.Score())

	require.NoError(t, te.PlayerStand("alice"))
	assert.Equal(t, 1, te.GetTable().State.CurrentSeatIdx)
	require.NoError(t, te.PlayerStand("bob"))

	table = te.GetTable()
	assert.Equal(t, TableStateStatus_Results, table.State.Status)
	assert.Equal(t, 18, table.State.DealerHand.Score())
	assert.Equal(t, UnsetValue, table.State.CurrentSeatIdx)

	assertBalance(t, dir, "alice", 1010)
	assertBalance(t, dir, "bob", 980)

	alice := recorder.result("alice")
	require.NotNil(t, alice)
	assert.Equal(t, SeatResult_Win, alice.Result)
	assert.Equal(t, int64(20), alice.Payout)
	assert.Equal(t, int64(10), alice.Winnings)
	assert.Equal(t, int64(1010), alice.Balance)

	bob := recorder.result("bob")
	require.NotNil(t, bob)
	assert.Equal(t, SeatResult_Lose, bob.Result)
	assert.Equal(t, int64(-20), bob.Winnings)
	assert.Equal(t, int64(980), bob.Balance)
}

func TestBlackjack_NaturalPaysThreeToTwo(t *testing.T) {
	te, dir, recorder := newTestTable(t, newTestOptions(), newTestMeta(GameType_Blackjack),
		"AS 9C KD 8D", "alice")

	require.NoError(t, te.PlayerBet("alice", 15))
	require.NoError(t, te.StartRound("alice"))

	table := te.GetTable()
	assert.Equal(t, TableStateStatus_Results, table.State.Status)
	assert.Equal(t, SeatStatus_Stood, table.State.Seats[0].Status)

	result := recorder.result("alice")
	require.NotNil(t, result)
	assert.Equal(t, SeatResult_Blackjack, result.Result)
	assert.Equal(t, int64(15+22), result.Payout)
	assertBalance(t, dir, "alice", 1022)
}

func TestBlackjack_BothNaturalPush(t *testing.T) {
	te, dir, recorder := newTestTable(t, newTestOptions(), newTestMeta(GameType_Blackjack),
		"AS AH KD KH", "alice")

	require.NoError(t, te.PlayerBet("alice", 10))
	require.NoError(t, te.StartRound("alice"))

	assert.Equal(t, SeatResult_Push, recorder.result("alice").Result)
	assertBalance(t, dir, "alice", 1000)
}

func TestBlackjack_HitBust(t *testing.T) {
	te, dir, recorder := newTestTable(t, newTestOptions(), newTestMeta(GameType_Blackjack),
		"TS 9C 6H 8D KC", "alice")

	require.NoError(t, te.PlayerBet("alice", 10))
	require.NoError(t, te.StartRound("alice"))
	require.NoError(t, te.PlayerHit("alice"))

	table := te.GetTable()
	assert.Equal(t, SeatStatus_Busted, table.State.Seats[0].Status)
	assert.Equal(t, TableStateStatus_Results, table.State.Status)
	assert.Equal(t, SeatResult_Bust, recorder.result("alice").Result)
	assertBalance(t, dir, "alice", 990)
}

func TestBlackjack_HitToTwentyOneStands(t *testing.T) {
	te, dir, recorder := newTestTable(t, newTestOptions(), newTestMeta(GameType_Blackjack),
		"5S 9D TH 6H 8C 7S TC", "alice", "bob")

	require.NoError(t, te.PlayerBet("alice", 10))
	require.NoError(t, te.PlayerBet("bob", 10))
	require.NoError(t, te.StartRound("alice"))

	require.NoError(t, te.PlayerHit("alice"))
	table := te.GetTable()
	assert.Equal(t, SeatStatus_Stood, table.State.Seats[0].Status)
	assert.Equal(t, 21, table.State.Seats[0].Hand.Score())
	assert.Equal(t, 1, table.State.CurrentSeatIdx)

	assert.ErrorIs(t, te.PlayerHit("alice"), ErrTableNotYourTurn)
	require.NoError(t, te.PlayerStand("bob"))

	assert.Equal(t, SeatResult_Win, recorder.result("alice").Result)
	assert.Equal(t, SeatResult_Push, recorder.result("bob").Result)
	assertBalance(t, dir, "alice", 1010)
	assertBalance(t, dir, "bob", 1000)
}

func TestBlackjack_InvalidActions(t *testing.T) {
	te, dir, _ := newTestTable(t, newTestOptions(), newTestMeta(GameType_Blackjack),
		"TS 9D 9C 6H 8C 8D", "alice", "bob")

	assert.ErrorIs(t, te.PlayerHit("alice"), ErrTableInvalidState)
	assert.ErrorIs(t, te.StartRound("alice"), ErrTableInvalidState)

	assert.ErrorIs(t, te.PlayerBet("alice", 5), ErrTableBelowMinimumBet)
	assert.ErrorIs(t, te.PlayerBet("carol", 10), ErrTablePlayerNotFound)
	assert.ErrorIs(t, te.PlayerBet("alice", 5000), session.ErrInsufficientFunds)
	assertBalance(t, dir, "alice", 1000)
	assert.Equal(t, SeatStatus_Betting, te.GetTable().State.Seats[0].Status)
	assert.Zero(t, te.GetTable().State.Seats[0].Bet)

	require.NoError(t, te.PlayerBet("alice", 10))
	assert.ErrorIs(t, te.PlayerBet("alice", 10), ErrTableAlreadyBet)
	assertBalance(t, dir, "alice", 990)

	require.NoError(t, te.PlayerBet("bob", 10))
	assert.ErrorIs(t, te.StartRound("bob"), ErrTableNotHost)
	assert.ErrorIs(t, te.StartRound("carol"), ErrTablePlayerNotFound)
	require.NoError(t, te.StartRound("alice"))

	assert.ErrorIs(t, te.PlayerBet("alice", 10), ErrTableInvalidState)
	assert.ErrorIs(t, te.PlayerStand("bob"), ErrTableNotYourTurn)
	assert.ErrorIs(t, te.PlayerHit("carol"), ErrTablePlayerNotFound)

	assert.ErrorIs(t, te.PlayerFold("alice"), ErrTableInvalidAction)
	assert.ErrorIs(t, te.PlayerCall("alice"), ErrTableInvalidAction)
	assert.ErrorIs(t, te.PlayerRaise("alice", 20), ErrTableInvalidAction)
}

func TestBlackjack_SoleSeatLeavesDuringTurn(t *testing.T) {
	te, dir, _ := newTestTable(t, newTestOptions(), newTestMeta(GameType_Blackjack),
		"TS 9C 6H 8D", "alice")

	require.NoError(t, te.PlayerBet("alice", 10))
	require.NoError(t, te.StartRound("alice"))
	require.Equal(t, TableStateStatus_PlayerTurn, te.GetTable().State.Status)

	require.NoError(t, te.PlayerLeave("alice"))

	table := te.GetTable()
	assert.Equal(t, TableStateStatus_WaitingForPlayers, table.State.Status)
	assert.Equal(t, UnsetValue, table.State.CurrentSeatIdx)
	assert.Empty(t, table.State.DealerHand)
	assert.Empty(t, table.State.Seats)

	// the bet is forfeited once cards are out
	assertBalance(t, dir, "alice", 990)
}

func TestBlackjack_ActiveSeatLeaves(t *testing.T) {
	te, dir, recorder := newTestTable(t, newTestOptions(), newTestMeta(GameType_Blackjack),
		"TS 9D 9C 6H 8C 8D", "alice", "bob")

	require.NoError(t, te.PlayerBet("alice", 10))
	require.NoError(t, te.PlayerBet("bob", 10))
	require.NoError(t, te.StartRound("alice"))
	require.Equal(t, 0, te.GetTable().State.CurrentSeatIdx)

	require.NoError(t, te.PlayerLeave("alice"))
	table := te.GetTable()
	assert.Equal(t, TableStateStatus_PlayerTurn, table.State.Status)
	assert.Equal(t, 0, table.State.CurrentSeatIdx)
	assert.Equal(t, "bob", table.State.Seats[table.State.CurrentSeatIdx].PlayerID)
	assert.Equal(t, "bob", table.State.HostID)

	require.NoError(t, te.PlayerStand("bob"))
	assert.Equal(t, TableStateStatus_Results, te.GetTable().State.Status)
	assert.Equal(t, SeatResult_Push, recorder.result("bob").Result)
	assert.Nil(t, recorder.result("alice"))
	assertBalance(t, dir, "alice", 990)
	assertBalance(t, dir, "bob", 1000)
}

func TestBlackjack_LeaveBeforeDealRefunds(t *testing.T) {
	te, dir, _ := newTestTable(t, newTestOptions(), newTestMeta(GameType_Blackjack), "", "alice", "bob")

	require.NoError(t, te.PlayerBet("bob", 10))
	require.NoError(t, te.PlayerBet("alice", 25))
	require.Equal(t, TableStateStatus_ReadyToStart, te.GetTable().State.Status)

	require.NoError(t, te.PlayerLeave("alice"))
	assertBalance(t, dir, "alice", 1000)

	// the remaining seat already bet
	table := te.GetTable()
	assert.Equal(t, TableStateStatus_ReadyToStart, table.State.Status)
	assert.Equal(t, "bob", table.State.HostID)
	assert.NoError(t, te.StartRound("bob"))
}

func TestBlackjack_RoundResetsAfterDelay(t *testing.T) {
	options := newTestOptions()
	options.ResultDisplayDuration = 50 * time.Millisecond
	te, _, _ := newTestTable(t, options, newTestMeta(GameType_Blackjack), "TS 9C 6H 8D", "alice")

	require.NoError(t, te.PlayerBet("alice", 10))
	require.NoError(t, te.StartRound("alice"))
	require.NoError(t, te.PlayerStand("alice"))
	assert.Equal(t, TableStateStatus_Results, te.GetTable().State.Status)

	assert.Eventually(t, func() bool {
		return te.GetTable().State.Status == TableStateStatus_WaitingForBets
	}, 2*time.Second, 10*time.Millisecond)

	table := te.GetTable()
	assert.Empty(t, table.State.DealerHand)
	assert.Zero(t, table.State.Seats[0].Bet)
	assert.Empty(t, table.State.Seats[0].Hand)
	assert.Equal(t, SeatStatus_Betting, table.State.Seats[0].Status)
	assert.Equal(t, 1, table.State.RoundCount)
}

func TestBlackjack_DealerPacing(t *testing.T) {
	options := newTestOptions()
	options.DealerDrawInterval = 30 * time.Millisecond
	te, dir, _ := newTestTable(t, options, newTestMeta(GameType_Blackjack), "TS 5C 9H 3D TC", "alice")

	require.NoError(t, te.PlayerBet("alice", 10))
	require.NoError(t, te.StartRound("alice"))
	require.NoError(t, te.PlayerStand("alice"))

	table := te.GetTable()
	assert.Equal(t, TableStateStatus_DealerTurn, table.State.Status)
	assert.Len(t, table.State.DealerHand, 2)

	assert.Eventually(t, func() bool {
		return te.GetTable().State.Status == TableStateStatus_Results
	}, 2*time.Second, 10*time.Millisecond)

	table = te.GetTable()
	assert.Equal(t, 18, table.State.DealerHand.Score())
	assertBalance(t, dir, "alice", 1010)
}

func TestBlackjack_LeaveDuringDealerTurnDropsPendingDraw(t *testing.T) {
	options := newTestOptions()
	options.DealerDrawInterval = 50 * time.Millisecond
	te, _, recorder := newTestTable(t, options, newTestMeta(GameType_Blackjack), "TS 5C 9H 3D TC", "alice")

	require.NoError(t, te.PlayerBet("alice", 10))
	require.NoError(t, te.StartRound("alice"))
	require.NoError(t, te.PlayerStand("alice"))
	require.NoError(t, te.PlayerLeave("alice"))

	time.Sleep(200 * time.Millisecond)
	table := te.GetTable()
	assert.Equal(t, TableStateStatus_WaitingForPlayers, table.State.Status)
	assert.Empty(t, table.State.DealerHand)
	assert.Zero(t, recorder.resultCount())
}

func TestBlackjack_AutoStart(t *testing.T) {
	options := newTestOptions()
	options.AutoStartTimeout = 1
	te, _, _ := newTestTable(t, options, newTestMeta(GameType_Blackjack), "TS 9C 6H 8D", "alice")

	require.NoError(t, te.PlayerBet("alice", 10))
	assert.Equal(t, TableStateStatus_ReadyToStart, te.GetTable().State.Status)

	assert.Eventually(t, func() bool {
		return te.GetTable().State.RoundCount == 1
	}, 3*time.Second, 50*time.Millisecond)
	assert.Equal(t, TableStateStatus_PlayerTurn, te.GetTable().State.Status)
}

func TestBlackjack_TurnAdvancementIsTotal(t *testing.T) {
	rng := rand.New(rand.NewSource(99))

	for round := 0; round < 50; round++ {
		dir := session.NewDirectory()
		te, err := NewTableEngine(newTestOptions(), dir, GameType_Blackjack,
			WithShoeOptions(card.WithRand(rand.New(rand.NewSource(int64(round))))))
		require.NoError(t, err)

		players := []string{"p1", "p2", "p3", "p4"}
		joinPlayers := make([]JoinPlayer, 0)
		for _, id := range players {
			dir.Open(id, id, testStartingBalance)
			joinPlayers = append(joinPlayers, JoinPlayer{PlayerID: id})
		}
		_, err = te.CreateTable(TableSetting{TableID: "t", Meta: newTestMeta(GameType_Blackjack), JoinPlayers: joinPlayers})
		require.NoError(t, err)

		for _, id := range players {
			require.NoError(t, te.PlayerBet(id, 10))
		}
		require.NoError(t, te.StartRound("p1"))

		turns := 0
		for te.GetTable().State.Status == TableStateStatus_PlayerTurn {
			table := te.GetTable()
			current := table.State.Seats[table.State.CurrentSeatIdx].PlayerID
			if rng.Intn(2) == 0 {
				require.NoError(t, te.PlayerHit(current))
			} else {
				require.NoError(t, te.PlayerStand(current))
			}

			turns++
			require.Less(t, turns, 100)
		}

		assert.Equal(t, TableStateStatus_Results, te.GetTable().State.Status)
		te.CloseTable()
	}
}

func TestSettleBlackjack(t *testing.T) {
	testCases := []struct {
		name     string
		player   string
		dealer   string
		outcome  string
		winnings int64
	}{
		{"bust", "TS 6H KC", "TD 9C", SeatResult_Bust, -20},
		{"bust beats dealer bust", "TS 6H KC", "TD 6C 9D", SeatResult_Bust, -20},
		{"natural", "AS KD", "TD 9C", SeatResult_Blackjack, 30},
		{"natural against three card 21", "AS KD", "7D 7C 7H", SeatResult_Blackjack, 30},
		{"both natural", "AS KD", "AH QC", SeatResult_Push, 0},
		{"dealer bust", "TS 2H", "TD 6C 9D", SeatResult_Win, 20},
		{"higher", "TS 9H", "TD 8C", SeatResult_Win, 20},
		{"equal", "TS 8H", "TD 8C", SeatResult_Push, 0},
		{"lower", "TS 7H", "TD 8C", SeatResult_Lose, -20},
		{"three card 21 against dealer natural", "7D 7C 7H", "AS KD", SeatResult_Push, 0},
	}

	for _, tc := range testCases {
		outcome, payout := SettleBlackjack(card.MustParseCards(tc.player), card.MustParseCards(tc.dealer), 20)
		assert.Equal(t, tc.outcome, outcome, tc.name)
		assert.Equal(t, tc.winnings, payout-20, tc.name)
	}
}

func TestTableView_HidesHoleCard(t *testing.T) {
	te, _, _ := newTestTable(t, newTestOptions(), newTestMeta(GameType_Blackjack), "TS 9C 6H 8D", "alice")

	require.NoError(t, te.PlayerBet("alice", 10))
	require.NoError(t, te.StartRound("alice"))

	view := NewTableView(te.GetTable())
	assert.Equal(t, []string{"9C", HiddenCard}, view.DealerHand)
	assert.Equal(t, 9, view.DealerScore)
	assert.Equal(t, []string{"TS", "6H"}, view.Seats[0].Hand)
	assert.Equal(t, 16, view.Seats[0].Score)
	assert.True(t, view.Seats[0].IsActive)
	assert.True(t, view.Seats[0].IsHost)

	require.NoError(t, te.PlayerStand("alice"))
	view = NewTableView(te.GetTable())
	assert.Equal(t, []string{"9C", "8D"}, view.DealerHand)
	assert.Equal(t, 17, view.DealerScore)
	assert.False(t, view.Seats[0].IsActive)
}
