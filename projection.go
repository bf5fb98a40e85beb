package cardtable

import (
	"github.com/weedbox/cardtable/card"
)

// TableView is the per-table projection broadcast to everyone at the table.
type TableView struct {
	ID             string           `json:"id"`
	GameType       GameType         `json:"game_type"`
	State          TableStateStatus `json:"state"`
	HostID         string           `json:"host_id"`
	MinBet         int64            `json:"min_bet"`
	MaxPlayers     int              `json:"max_players"`
	CurrentPlayers int              `json:"current_players"`
	RoundCount     int              `json:"round_count"`
	DealerHand     []string         `json:"dealer_hand"`
	DealerScore    int              `json:"dealer_score"`
	Seats          []SeatView       `json:"seats"`
	Poker          *PokerView       `json:"poker,omitempty"`
}

type SeatView struct {
	PlayerID string   `json:"player_id"`
	Name     string   `json:"name"`
	Bet      int64    `json:"bet"`
	Hand     []string `json:"hand"`
	Score    int      `json:"score"`
	Status   string   `json:"status"`
	IsHost   bool     `json:"is_host"`
	IsActive bool     `json:"is_active"`
}

type PokerView struct {
	Round     string   `json:"round"`
	Pot       int64    `json:"pot"`
	Stacks    []int64  `json:"stacks"`
	Wagers    []int64  `json:"wagers"`
	Allowed   []string `json:"allowed_actions"`
	CurrentID string   `json:"current_player_id"`
}

// SeatResult is delivered to the seat owner only.
type SeatResult struct {
	TableID  string `json:"table_id"`
	PlayerID string `json:"player_id"`
	Result   string `json:"result"`
	Message  string `json:"message"`
	Bet      int64  `json:"bet"`
	Payout   int64  `json:"payout"`   // 返還總額 (含本金)
	Winnings int64  `json:"winnings"` // 淨輸贏
	Balance  int64  `json:"balance"`
}

/*
NewTableView 產生桌面投影
  - 發牌與玩家動作期間, 莊家第二張牌以 "??" 顯示
  - 此時莊家點數只計算已翻開的牌
*/
func NewTableView(t *Table) *TableView {
	v := &TableView{
		ID:             t.ID,
		GameType:       t.Meta.GameType,
		State:          t.State.Status,
		HostID:         t.State.HostID,
		MinBet:         t.Meta.MinBet,
		MaxPlayers:     t.Meta.MaxSeatCount,
		CurrentPlayers: len(t.State.Seats),
		RoundCount:     t.State.RoundCount,
		DealerHand:     make([]string, 0),
		Seats:          make([]SeatView, 0, len(t.State.Seats)),
	}

	dealer := t.State.DealerHand
	if isHoleCardHidden(t.State.Status) && len(dealer) > 1 {
		revealed := dealer[:1]
		v.DealerHand = append(revealed.Strings(), HiddenCard)
		v.DealerScore = card.Score(revealed)
	} else {
		v.DealerHand = dealer.Strings()
		v.DealerScore = dealer.Score()
	}

	for idx, seat := range t.State.Seats {
		v.Seats = append(v.Seats, SeatView{
			PlayerID: seat.PlayerID,
			Name:     seat.Name,
			Bet:      seat.Bet,
			Hand:     seat.Hand.Strings(),
			Score:    seat.Hand.Score(),
			Status:   seat.Status,
			IsHost:   seat.PlayerID == t.State.HostID,
			IsActive: t.State.Status == TableStateStatus_PlayerTurn && idx == t.State.CurrentSeatIdx,
		})
	}

	if t.State.PokerState != nil {
		v.Poker = newPokerView(t)
	}

	return v
}

func isHoleCardHidden(status TableStateStatus) bool {
	return status == TableStateStatus_Dealing || status == TableStateStatus_PlayerTurn
}

func newPokerView(t *Table) *PokerView {
	gs := t.State.PokerState
	pv := &PokerView{
		Round:   gs.Status.Round,
		Stacks:  make([]int64, 0, len(gs.Players)),
		Wagers:  make([]int64, 0, len(gs.Players)),
		Allowed: make([]string, 0),
	}

	for _, p := range gs.Players {
		pv.Pot += p.Bankroll - p.StackSize
		pv.Stacks = append(pv.Stacks, p.StackSize)
		pv.Wagers = append(pv.Wagers, p.Wager)
	}

	current := gs.Status.CurrentPlayer
	if current >= 0 && current < len(t.State.GamePlayerIDs) {
		pv.CurrentID = t.State.GamePlayerIDs[current]
		if p := gs.GetPlayer(current); p != nil {
			pv.Allowed = p.AllowedActions
		}
	}

	return pv
}
