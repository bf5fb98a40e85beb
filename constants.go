package cardtable

const (
	// General
	UnsetValue = -1

	// Seat Status
	SeatStatus_Betting = "betting" // 入座, 尚未下注
	SeatStatus_Ready   = "ready"   // 已下注
	SeatStatus_Active  = "active"  // 輪到該座位動作
	SeatStatus_Stood   = "stood"   // 停牌
	SeatStatus_Busted  = "busted"  // 爆牌
	SeatStatus_Folded  = "folded"  // 棄牌 (撲克)

	// Seat Result
	SeatResult_Blackjack = "Blackjack"
	SeatResult_Win       = "Win"
	SeatResult_Push      = "Push"
	SeatResult_Lose      = "Lose"
	SeatResult_Bust      = "Bust"
	SeatResult_Fold      = "Fold"

	// Dealer
	DealerStandScore = 17
	BlackjackScore   = 21
	HiddenCard       = "??"

	// Poker Wager Action
	WagerAction_Fold  = "fold"
	WagerAction_Check = "check"
	WagerAction_Call  = "call"
	WagerAction_Raise = "raise"
	WagerAction_AllIn = "allin"
	WagerAction_Pass  = "pass"

	// Poker Position
	Position_Dealer = "dealer"
	Position_SB     = "sb"
	Position_BB     = "bb"
)

type GameType string

const (
	GameType_Blackjack GameType = "Blackjack"
	GameType_Poker     GameType = "Poker"
)

func (gt GameType) IsValid() bool {
	return gt == GameType_Blackjack || gt == GameType_Poker
}

// DefaultMinPlayerCount returns the seats required before bets (or a poker hand) open.
func (gt GameType) DefaultMinPlayerCount() int {
	if gt == GameType_Poker {
		return 2
	}
	return 1
}
