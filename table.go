package cardtable

import (
	"encoding/json"
	"time"

	"github.com/thoas/go-funk"
	"github.com/weedbox/cardtable/card"
	"github.com/weedbox/pokerface"
)

type TableStateStatus string

const (
	TableStateStatus_WaitingForPlayers TableStateStatus = "WAITING_FOR_PLAYERS" // 等待玩家入座
	TableStateStatus_WaitingForBets    TableStateStatus = "WAITING_FOR_BETS"    // 等待下注
	TableStateStatus_ReadyToStart      TableStateStatus = "READY_TO_START"      // 全員已下注, 等待桌主開局
	TableStateStatus_Dealing           TableStateStatus = "DEALING"             // 發牌中
	TableStateStatus_PlayerTurn        TableStateStatus = "PLAYER_TURN"         // 玩家動作中
	TableStateStatus_DealerTurn        TableStateStatus = "DEALER_TURN"         // 莊家補牌中
	TableStateStatus_Results           TableStateStatus = "RESULTS"             // 結算展示中
	TableStateStatus_Closed            TableStateStatus = "CLOSED"              // 桌次已關閉
)

type Table struct {
	ID           string      `json:"id"`
	Meta         TableMeta   `json:"meta"`
	State        *TableState `json:"state"`
	CreatedAt    int64       `json:"created_at"`    // 建立時間 (UnixNano)
	UpdateAt     int64       `json:"update_at"`     // 更新時間 (Seconds)
	UpdateSerial int64       `json:"update_serial"` // 更新序列號 (數字越大越晚發生)
}

type TableMeta struct {
	GameType       GameType `json:"game_type"`        // 遊戲類型
	MaxSeatCount   int      `json:"max_seat_count"`   // 座位上限
	MinPlayerCount int      `json:"min_player_count"` // 開放下注最少人數
	MinBet         int64    `json:"min_bet"`          // 最小下注額 (撲克: 大盲)
	IsPrivate      bool     `json:"is_private"`       // 是否為私人桌
	Password       string   `json:"-"`                // 私人桌密碼
	IsPermanent    bool     `json:"is_permanent"`     // 空桌時不關閉
}

type TableState struct {
	Status         TableStateStatus     `json:"status"`           // 當前桌次狀態
	HostID         string               `json:"host_id"`          // 桌主 (最早入座者), 可開局
	Seats          []*TableSeatState    `json:"seats"`            // 依入座順序排列
	DealerHand     card.Hand            `json:"dealer_hand"`      // 莊家手牌
	CurrentSeatIdx int                  `json:"current_seat_idx"` // 當前動作座位 (-1 表示無)
	RoundCount     int                  `json:"round_count"`      // 已開局次數
	GamePlayerIDs  []string             `json:"game_player_ids"`  // 撲克: pokerface player index 對應的玩家, 離桌後為空字串
	PokerState     *pokerface.GameState `json:"poker_state"`      // 撲克: 本手狀態
}

type TableSeatState struct {
	PlayerID string    `json:"player_id"`
	Name     string    `json:"name"`
	Bet      int64     `json:"bet"`
	Hand     card.Hand `json:"hand"`
	Status   string    `json:"status"`
}

// TableSummary is the lobby view of a table. It never carries seat details.
type TableSummary struct {
	ID             string           `json:"id"`
	GameType       GameType         `json:"game_type"`
	CurrentPlayers int              `json:"current_players"`
	MaxPlayers     int              `json:"max_players"`
	MinBet         int64            `json:"min_bet"`
	IsPrivate      bool             `json:"is_private"`
	State          TableStateStatus `json:"state"`
}

func NewTable(setting TableSetting) *Table {
	now := time.Now()
	return &Table{
		ID:        setting.TableID,
		Meta:      setting.Meta,
		CreatedAt: now.UnixNano(),
		UpdateAt:  now.Unix(),
		State: &TableState{
			Status:         TableStateStatus_WaitingForPlayers,
			Seats:          make([]*TableSeatState, 0, setting.Meta.MaxSeatCount),
			DealerHand:     card.Hand{},
			CurrentSeatIdx: UnsetValue,
			GamePlayerIDs:  make([]string, 0),
		},
	}
}

// Setters
func (t *Table) RefreshUpdateAt() {
	t.UpdateAt = time.Now().Unix()
	t.UpdateSerial++
}

func (t *Table) AddSeat(playerID, name string) *TableSeatState {
	seat := &TableSeatState{
		PlayerID: playerID,
		Name:     name,
		Hand:     card.Hand{},
		Status:   SeatStatus_Betting,
	}
	t.State.Seats = append(t.State.Seats, seat)

	if t.State.HostID == "" {
		t.State.HostID = playerID
	}

	return seat
}

/*
RemoveSeat 移除座位
  - 當前動作座位之後的索引往前移
  - 桌主離開時由下一位入座者接任, 無人則清空
*/
func (t *Table) RemoveSeat(seatIdx int) *TableSeatState {
	seat := t.State.Seats[seatIdx]
	t.State.Seats = append(t.State.Seats[:seatIdx], t.State.Seats[seatIdx+1:]...)

	if t.State.CurrentSeatIdx > seatIdx {
		t.State.CurrentSeatIdx--
	}

	if t.State.HostID == seat.PlayerID {
		t.State.HostID = ""
		if len(t.State.Seats) > 0 {
			t.State.HostID = t.State.Seats[0].PlayerID
		}
	}

	return seat
}

// ResetRound clears every bet and hand and puts all seats back to betting.
func (t *Table) ResetRound() {
	t.State.DealerHand = card.Hand{}
	t.State.CurrentSeatIdx = UnsetValue
	t.State.GamePlayerIDs = make([]string, 0)
	t.State.PokerState = nil
	for _, seat := range t.State.Seats {
		seat.Bet = 0
		seat.Hand = card.Hand{}
		seat.Status = SeatStatus_Betting
	}
}

// Table Getters
func (t Table) Clone() (*Table, error) {
	encoded, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}

	var cloned Table
	if err := json.Unmarshal(encoded, &cloned); err != nil {
		return nil, err
	}

	return &cloned, nil
}

func (t Table) GetJSON() (string, error) {
	encoded, err := json.Marshal(t)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

func (t Table) FindSeatIdx(playerID string) int {
	for idx, seat := range t.State.Seats {
		if seat.PlayerID == playerID {
			return idx
		}
	}
	return UnsetValue
}

func (t Table) HasSeat(playerID string) bool {
	return t.FindSeatIdx(playerID) != UnsetValue
}

func (t Table) IsFull() bool {
	return len(t.State.Seats) >= t.Meta.MaxSeatCount
}

func (t Table) IsEmpty() bool {
	return len(t.State.Seats) == 0
}

func (t Table) IsClosed() bool {
	return t.State.Status == TableStateStatus_Closed
}

// IsRoundInProgress reports whether cards are out on the table.
func (t Table) IsRoundInProgress() bool {
	return funk.Contains([]TableStateStatus{
		TableStateStatus_Dealing,
		TableStateStatus_PlayerTurn,
		TableStateStatus_DealerTurn,
	}, t.State.Status)
}

func (t Table) BettingSeats() []*TableSeatState {
	return funk.Filter(t.State.Seats, func(seat *TableSeatState) bool {
		return seat.Bet > 0
	}).([]*TableSeatState)
}

func (t Table) AllSeatsBet() bool {
	return len(t.State.Seats) > 0 && len(t.BettingSeats()) == len(t.State.Seats)
}

func (t Table) PlayerIDs() []string {
	return funk.Map(t.State.Seats, func(seat *TableSeatState) string {
		return seat.PlayerID
	}).([]string)
}

func (t Table) Summary() TableSummary {
	return TableSummary{
		ID:             t.ID,
		GameType:       t.Meta.GameType,
		CurrentPlayers: len(t.State.Seats),
		MaxPlayers:     t.Meta.MaxSeatCount,
		MinBet:         t.Meta.MinBet,
		IsPrivate:      t.Meta.IsPrivate,
		State:          t.State.Status,
	}
}
