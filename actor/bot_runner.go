package actor

import (
	"sync"
	"time"

	"github.com/weedbox/cardtable"
	"github.com/weedbox/cardtable/card"
	"github.com/weedbox/timebank"
)

const (
	Action_Bet   = "bet"
	Action_Start = "start"
	Action_Hit   = "hit"
	Action_Stand = "stand"
	Action_Call  = "call"
)

// Actions is the intent surface a bot plays through. cardtable.Manager satisfies it.
type Actions interface {
	StartRound(tableID, playerID string) error
	PlayerBet(tableID, playerID string, chips int64) error
	PlayerHit(tableID, playerID string) error
	PlayerStand(tableID, playerID string) error
	PlayerCall(tableID, playerID string) error
}

type ActionUpdatedFunc func(tableID, playerID, action string, chips int64, err error)

type Options struct {
	ThinkTime  time.Duration // 動作前等待時間
	StandScore int           // 點數達到此值即停牌
	BetChips   int64         // 下注額, 0 表示以桌次最小下注額下注
}

func NewOptions() *Options {
	return &Options{
		ThinkTime:  500 * time.Millisecond,
		StandScore: cardtable.DealerStandScore,
	}
}

/*
BotRunner 自動玩家
  - 依收到的桌次快照決定動作, 過期快照 (UpdateSerial 較小) 忽略
  - 動作經由 timebank 延後執行, 新快照會取消尚未執行的動作
  - 21 點: 下注、桌主開局、未達 StandScore 要牌否則停牌
  - 撲克: 桌主開局、輪到時跟注或過牌
*/
type BotRunner struct {
	mu              sync.Mutex
	playerID        string
	options         *Options
	actions         Actions
	timebank        *timebank.TimeBank
	lastSerial      int64
	onActionUpdated ActionUpdatedFunc
}

func NewBotRunner(playerID string, actions Actions, options *Options) *BotRunner {
	if options == nil {
		options = NewOptions()
	}

	return &BotRunner{
		playerID:        playerID,
		options:         options,
		actions:         actions,
		timebank:        timebank.NewTimeBank(),
		lastSerial:      -1,
		onActionUpdated: func(string, string, string, int64, error) {},
	}
}

func (br *BotRunner) PlayerID() string {
	return br.playerID
}

func (br *BotRunner) OnActionUpdated(fn ActionUpdatedFunc) {
	br.onActionUpdated = fn
}

// UpdateTableState is safe to call from table callbacks: the chosen action always runs on another goroutine.
func (br *BotRunner) UpdateTableState(table *cardtable.Table) {
	br.mu.Lock()
	defer br.mu.Unlock()

	if table == nil || table.UpdateSerial <= br.lastSerial {
		return
	}
	br.lastSerial = table.UpdateSerial

	action, chips := Decide(table, br.playerID, br.options)
	if action == "" {
		br.timebank.Cancel()
		return
	}

	tableID := table.ID
	br.timebank.NewTask(br.options.ThinkTime, func(isCancelled bool) {
		if isCancelled {
			return
		}

		err := br.perform(tableID, action, chips)
		br.onActionUpdated(tableID, br.playerID, action, chips, err)
	})
}

func (br *BotRunner) Stop() {
	br.timebank.Cancel()
}

func (br *BotRunner) perform(tableID, action string, chips int64) error {
	switch action {
	case Action_Bet:
		return br.actions.PlayerBet(tableID, br.playerID, chips)
	case Action_Start:
		return br.actions.StartRound(tableID, br.playerID)
	case Action_Hit:
		return br.actions.PlayerHit(tableID, br.playerID)
	case Action_Stand:
		return br.actions.PlayerStand(tableID, br.playerID)
	case Action_Call:
		return br.actions.PlayerCall(tableID, br.playerID)
	}
	return nil
}

// Decide returns the action playerID should take on table, or an empty action when nothing is expected of it.
func Decide(table *cardtable.Table, playerID string, options *Options) (string, int64) {
	seatIdx := table.FindSeatIdx(playerID)
	if seatIdx == cardtable.UnsetValue {
		return "", 0
	}
	seat := table.State.Seats[seatIdx]

	switch table.State.Status {
	case cardtable.TableStateStatus_WaitingForBets:
		if table.Meta.GameType == cardtable.GameType_Blackjack && seat.Bet == 0 {
			chips := options.BetChips
			if chips < table.Meta.MinBet {
				chips = table.Meta.MinBet
			}
			return Action_Bet, chips
		}
	case cardtable.TableStateStatus_ReadyToStart:
		if table.State.HostID == playerID {
			return Action_Start, 0
		}
	case cardtable.TableStateStatus_PlayerTurn:
		if table.Meta.GameType == cardtable.GameType_Poker {
			if isPokerTurn(table, playerID) {
				return Action_Call, 0
			}
			return "", 0
		}

		if table.State.CurrentSeatIdx != seatIdx {
			return "", 0
		}

		if card.Score(seat.Hand) < options.StandScore {
			return Action_Hit, 0
		}
		return Action_Stand, 0
	}

	return "", 0
}

func isPokerTurn(table *cardtable.Table, playerID string) bool {
	gs := table.State.PokerState
	if gs == nil {
		return false
	}

	idx := gs.Status.CurrentPlayer
	if idx < 0 || idx >= len(table.State.GamePlayerIDs) {
		return false
	}

	return table.State.GamePlayerIDs[idx] == playerID
}
