package cardtable

import (
	"errors"
	"fmt"

	"github.com/thoas/go-funk"
	"github.com/weedbox/pokerface"
	"go.uber.org/zap"
)

var (
	ErrPokerUnknownEvent = errors.New("poker: unknown game event")
	ErrPokerStalled      = errors.New("poker: game did not reach a player decision")
)

// maxDriveSteps bounds the automatic events processed between two player decisions.
const maxDriveSteps = 64

type pokerEngine struct {
	*tableEngine
	backend *PokerBackend
}

func newPokerEngine(te *tableEngine) *pokerEngine {
	backend := te.pokerBackend
	if backend == nil {
		backend = NewPokerBackend(te.logger)
	}

	pe := &pokerEngine{
		tableEngine: te,
		backend:     backend,
	}
	te.rules = pe
	return pe
}

func (pe *pokerEngine) PlayerFold(playerID string) error {
	return pe.playerAction(playerID, WagerAction_Fold, func(gs *pokerface.GameState) (*pokerface.GameState, error) {
		return pe.backend.Fold(gs)
	})
}

// PlayerCall checks when there is nothing to call.
func (pe *pokerEngine) PlayerCall(playerID string) error {
	return pe.playerAction(playerID, WagerAction_Call, func(gs *pokerface.GameState) (*pokerface.GameState, error) {
		if gs.HasAction(gs.Status.CurrentPlayer, WagerAction_Check) {
			return pe.backend.Check(gs)
		}
		return pe.backend.Call(gs)
	})
}

func (pe *pokerEngine) PlayerRaise(playerID string, chipLevel int64) error {
	return pe.playerAction(playerID, WagerAction_Raise, func(gs *pokerface.GameState) (*pokerface.GameState, error) {
		return pe.backend.Raise(gs, chipLevel)
	})
}

func (pe *pokerEngine) playerAction(playerID string, action string, fn func(*pokerface.GameState) (*pokerface.GameState, error)) error {
	defer pe.flush()

	pe.lock.Lock()
	defer pe.lock.Unlock()

	if err := pe.checkOpen(); err != nil {
		return err
	}

	if pe.table.State.Status != TableStateStatus_PlayerTurn || pe.table.State.PokerState == nil {
		return ErrTableInvalidState
	}

	seatIdx := pe.table.FindSeatIdx(playerID)
	if seatIdx == UnsetValue {
		return ErrTablePlayerNotFound
	}

	gs := pe.table.State.PokerState
	if pe.gamePlayerID(gs.Status.CurrentPlayer) != playerID {
		return ErrTableNotYourTurn
	}

	next, err := fn(gs)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTableInvalidAction, err)
	}

	if action == WagerAction_Fold {
		pe.table.State.Seats[seatIdx].Status = SeatStatus_Folded
	}

	pe.emitEvent(action, playerID)

	if err := pe.drive(next); err != nil {
		pe.emitErrorEvent("Drive", playerID, err)
	}

	return nil
}

/*
startRound 開始一手撲克
  - 每位有餘額的玩家以全部餘額買入
  - 盲注: 小盲 = MinBet / 2, 大盲 = MinBet
  - Dealer 依局數輪轉
*/
func (pe *pokerEngine) startRound() error {
	seatIndexes := make([]int, 0, len(pe.table.State.Seats))
	buyIns := make(map[int]int64)
	for idx, seat := range pe.table.State.Seats {
		balance, err := pe.wallet.Balance(seat.PlayerID)
		if err != nil || balance <= 0 {
			continue
		}
		seatIndexes = append(seatIndexes, idx)
		buyIns[idx] = balance
	}

	if len(seatIndexes) < pe.table.Meta.MinPlayerCount || len(seatIndexes) < 2 {
		return ErrTableNotEnoughPlayers
	}

	seatIndexes = rotateIntArray(seatIndexes, pe.table.State.RoundCount)

	// buy in
	debited := make([]int, 0, len(seatIndexes))
	for _, idx := range seatIndexes {
		seat := pe.table.State.Seats[idx]
		if _, err := pe.wallet.Debit(seat.PlayerID, buyIns[idx]); err != nil {
			for _, refundIdx := range debited {
				pe.wallet.Credit(pe.table.State.Seats[refundIdx].PlayerID, buyIns[refundIdx])
			}
			return err
		}
		debited = append(debited, idx)
	}

	opts := pokerface.NewStardardGameOptions()
	opts.Deck = pokerface.NewStandardDeckCards()
	opts.Ante = 0
	opts.Blind = pokerface.BlindSetting{
		Dealer: 0,
		SB:     pe.table.Meta.MinBet / 2,
		BB:     pe.table.Meta.MinBet,
	}

	positions := newPositions(len(seatIndexes))
	playerSettings := make([]*pokerface.PlayerSetting, 0, len(seatIndexes))
	gamePlayerIDs := make([]string, 0, len(seatIndexes))
	for gamePlayerIdx, idx := range seatIndexes {
		seat := pe.table.State.Seats[idx]
		seat.Bet = buyIns[idx]
		seat.Status = SeatStatus_Active
		gamePlayerIDs = append(gamePlayerIDs, seat.PlayerID)
		playerSettings = append(playerSettings, &pokerface.PlayerSetting{
			Bankroll:  buyIns[idx],
			Positions: positions[gamePlayerIdx],
		})
	}
	opts.Players = playerSettings

	gs, err := pe.backend.CreateGame(opts)
	if err != nil {
		for _, idx := range debited {
			pe.wallet.Credit(pe.table.State.Seats[idx].PlayerID, buyIns[idx])
		}
		pe.table.ResetRound()
		return err
	}

	pe.table.State.RoundCount++
	pe.table.State.GamePlayerIDs = gamePlayerIDs
	pe.setStatus(TableStateStatus_Dealing)

	pe.logger.Debug("poker hand started",
		zap.String("table_id", pe.table.ID),
		zap.String("game_id", gs.GameID),
		zap.Int("round", pe.table.State.RoundCount),
		zap.Strings("players", gamePlayerIDs),
	)
	pe.emitEvent("StartRound", pe.table.State.HostID)

	if err := pe.drive(gs); err != nil {
		pe.abortRound(err)
		return err
	}

	return nil
}

/*
drive 自動推進不需要玩家決定的事件
  - 準備, 前注, 盲注, 回合結束皆自動處理
  - 已離桌玩家輪到時自動棄牌
  - 停在需要玩家動作或整手結束
*/
func (pe *pokerEngine) drive(gs *pokerface.GameState) error {
	for i := 0; i < maxDriveSteps; i++ {
		pe.table.State.PokerState = gs

		event, ok := pokerface.GameEventBySymbol[gs.Status.CurrentEvent]
		if !ok {
			return ErrPokerUnknownEvent
		}

		var err error
		switch event {
		case pokerface.GameEvent_ReadyRequested:
			gs, err = pe.backend.ReadyForAll(gs)
		case pokerface.GameEvent_AnteRequested:
			gs, err = pe.backend.PayAnte(gs)
		case pokerface.GameEvent_BlindsRequested:
			gs, err = pe.backend.PayBlinds(gs)
		case pokerface.GameEvent_RoundClosed:
			gs, err = pe.backend.Next(gs)
		case pokerface.GameEvent_GameClosed:
			pe.settle()
			return nil
		default:
			current := gs.Status.CurrentPlayer
			switch {
			case gs.HasAction(current, WagerAction_Pass):
				gs, err = pe.backend.Pass(gs)
			case pe.gamePlayerID(current) == "" && gs.HasAction(current, WagerAction_Fold):
				gs, err = pe.backend.Fold(gs)
			default:
				pe.table.State.CurrentSeatIdx = pe.table.FindSeatIdx(pe.gamePlayerID(current))
				pe.setStatus(TableStateStatus_PlayerTurn)
				pe.emitEvent(gs.Status.CurrentEvent, pe.gamePlayerID(current))
				return nil
			}
		}

		if err != nil {
			return err
		}
	}

	return ErrPokerStalled
}

func (pe *pokerEngine) settle() {
	gs := pe.table.State.PokerState
	pe.table.State.CurrentSeatIdx = UnsetValue

	if gs.Result != nil {
		for _, result := range gs.Result.Players {
			playerID := pe.gamePlayerID(result.Idx)
			if playerID == "" {
				continue
			}

			balance, err := pe.wallet.Credit(playerID, result.Final)
			if err != nil {
				pe.emitErrorEvent("Settle", playerID, err)
			}

			// InitialStackSize restarts every street, Bankroll is the buy-in for the whole hand
			buyIn := int64(0)
			if p := gs.GetPlayer(result.Idx); p != nil {
				buyIn = p.Bankroll
			}

			outcome := SeatResult_Push
			switch {
			case result.Final > buyIn:
				outcome = SeatResult_Win
			case result.Final < buyIn:
				outcome = SeatResult_Lose
			}

			seatIdx := pe.table.FindSeatIdx(playerID)
			if seatIdx != UnsetValue && pe.table.State.Seats[seatIdx].Status == SeatStatus_Folded {
				outcome = SeatResult_Fold
			}

			pe.emitSeatResultEvent(&SeatResult{
				TableID:  pe.table.ID,
				PlayerID: playerID,
				Result:   outcome,
				Message:  fmt.Sprintf("Hand over: %s, stack %d -> %d.", outcome, buyIn, result.Final),
				Bet:      buyIn,
				Payout:   result.Final,
				Winnings: result.Final - buyIn,
				Balance:  balance,
			})
		}
	}

	pe.setStatus(TableStateStatus_Results)
	pe.emitEvent("Settle", "")
	pe.schedule(pe.options.ResultDisplayDuration, pe.resetRound)
}

// abortRound voids a hand that could not be driven to a player decision and returns every buy-in.
func (pe *pokerEngine) abortRound(err error) {
	pe.logger.Error("poker hand aborted",
		zap.String("table_id", pe.table.ID),
		zap.Int("round", pe.table.State.RoundCount),
		zap.Error(err),
	)

	pe.emitErrorEvent("Drive", pe.table.State.HostID, err)
	pe.release()
	pe.resetRound()
}

func (pe *pokerEngine) resetRound() {
	pe.table.ResetRound()
	if len(pe.table.State.Seats) >= pe.table.Meta.MinPlayerCount {
		pe.setStatus(TableStateStatus_ReadyToStart)
	} else {
		pe.setStatus(TableStateStatus_WaitingForPlayers)
	}

	pe.emitEvent("ResetRound", "")
}

func (pe *pokerEngine) refreshStatus() {
	switch pe.table.State.Status {
	case TableStateStatus_WaitingForPlayers, TableStateStatus_WaitingForBets, TableStateStatus_ReadyToStart:
	default:
		return
	}

	if pe.table.IsEmpty() || len(pe.table.State.Seats) < pe.table.Meta.MinPlayerCount {
		pe.setStatus(TableStateStatus_WaitingForPlayers)
		return
	}

	pe.setStatus(TableStateStatus_ReadyToStart)
}

/*
leave 玩家離桌
  - 手牌進行中: 退還剩餘籌碼, 輪到時自動棄牌
*/
func (pe *pokerEngine) leave(seatIdx int) {
	seat := pe.table.State.Seats[seatIdx]
	gs := pe.table.State.PokerState
	inHand := pe.table.IsRoundInProgress() && gs != nil

	if inHand {
		gamePlayerIdx := funk.IndexOfString(pe.table.State.GamePlayerIDs, seat.PlayerID)
		if gamePlayerIdx != -1 {
			if p := gs.GetPlayer(gamePlayerIdx); p != nil && p.StackSize > 0 {
				if _, err := pe.wallet.Credit(seat.PlayerID, p.StackSize); err != nil {
					pe.emitErrorEvent("CashOut", seat.PlayerID, err)
				}
			}
			pe.table.State.GamePlayerIDs[gamePlayerIdx] = ""
		}
	}

	pe.table.RemoveSeat(seatIdx)

	if pe.table.IsEmpty() && (inHand || pe.table.State.Status == TableStateStatus_Results) {
		pe.tb.Cancel()
		pe.table.ResetRound()
		pe.setStatus(TableStateStatus_WaitingForPlayers)
		return
	}

	if inHand && pe.gamePlayerID(gs.Status.CurrentPlayer) == "" {
		if err := pe.drive(gs); err != nil {
			pe.emitErrorEvent("Drive", seat.PlayerID, err)
		}
		return
	}

	if inHand {
		pe.table.State.CurrentSeatIdx = pe.table.FindSeatIdx(pe.gamePlayerID(gs.Status.CurrentPlayer))
	}

	pe.refreshStatus()
}

// release voids a running hand and returns every buy-in still at the table.
func (pe *pokerEngine) release() {
	gs := pe.table.State.PokerState
	if gs == nil || !pe.table.IsRoundInProgress() {
		return
	}

	for idx, playerID := range pe.table.State.GamePlayerIDs {
		if playerID == "" {
			continue
		}

		if p := gs.GetPlayer(idx); p != nil {
			if _, err := pe.wallet.Credit(playerID, p.Bankroll); err != nil {
				pe.emitErrorEvent("Refund", playerID, err)
			}
		}
	}
}

func (pe *pokerEngine) gamePlayerID(gamePlayerIdx int) string {
	if gamePlayerIdx < 0 || gamePlayerIdx >= len(pe.table.State.GamePlayerIDs) {
		return ""
	}
	return pe.table.State.GamePlayerIDs[gamePlayerIdx]
}
