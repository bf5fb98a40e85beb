package cardtable

import (
	"fmt"

	"github.com/weedbox/cardtable/card"
	"go.uber.org/zap"
)

type blackjackEngine struct {
	*tableEngine
	shoe *card.Shoe
}

func newBlackjackEngine(te *tableEngine) *blackjackEngine {
	be := &blackjackEngine{
		tableEngine: te,
		shoe:        card.NewShoe(te.shoeOpts...),
	}
	te.rules = be
	return be
}

/*
PlayerBet 玩家下注
  - 僅限 WAITING_FOR_BETS, 每局每座位只能下注一次
  - 下注成功立即扣款, 全員下注後進入 READY_TO_START
*/
func (be *blackjackEngine) PlayerBet(playerID string, chips int64) error {
	defer be.flush()

	be.lock.Lock()
	defer be.lock.Unlock()

	if err := be.checkOpen(); err != nil {
		return err
	}

	if be.table.State.Status != TableStateStatus_WaitingForBets {
		return ErrTableInvalidState
	}

	seatIdx := be.table.FindSeatIdx(playerID)
	if seatIdx == UnsetValue {
		return ErrTablePlayerNotFound
	}

	if chips < be.table.Meta.MinBet {
		return ErrTableBelowMinimumBet
	}

	seat := be.table.State.Seats[seatIdx]
	if seat.Bet > 0 {
		return ErrTableAlreadyBet
	}

	if _, err := be.wallet.Debit(playerID, chips); err != nil {
		return err
	}

	seat.Bet = chips
	seat.Status = SeatStatus_Ready

	be.emitEvent("PlayerBet", playerID)
	be.refreshStatus()
	return nil
}

func (be *blackjackEngine) PlayerHit(playerID string) error {
	defer be.flush()

	be.lock.Lock()
	defer be.lock.Unlock()

	seat, err := be.validateTurn(playerID)
	if err != nil {
		return err
	}

	seat.Hand = append(seat.Hand, be.shoe.Draw())

	switch score := seat.Hand.Score(); {
	case score > BlackjackScore:
		seat.Status = SeatStatus_Busted
	case score == BlackjackScore:
		seat.Status = SeatStatus_Stood
	}

	be.emitEvent("PlayerHit", playerID)

	if seat.Status != SeatStatus_Active {
		be.advanceTurn(be.table.State.CurrentSeatIdx)
	}

	return nil
}

func (be *blackjackEngine) PlayerStand(playerID string) error {
	defer be.flush()

	be.lock.Lock()
	defer be.lock.Unlock()

	seat, err := be.validateTurn(playerID)
	if err != nil {
		return err
	}

	seat.Status = SeatStatus_Stood

	be.emitEvent("PlayerStand", playerID)
	be.advanceTurn(be.table.State.CurrentSeatIdx)
	return nil
}

func (be *blackjackEngine) validateTurn(playerID string) (*TableSeatState, error) {
	if err := be.checkOpen(); err != nil {
		return nil, err
	}

	if be.table.State.Status != TableStateStatus_PlayerTurn {
		return nil, ErrTableInvalidState
	}

	seatIdx := be.table.FindSeatIdx(playerID)
	if seatIdx == UnsetValue {
		return nil, ErrTablePlayerNotFound
	}

	if seatIdx != be.table.State.CurrentSeatIdx {
		return nil, ErrTableNotYourTurn
	}

	return be.table.State.Seats[seatIdx], nil
}

/*
startRound 開局發牌
  - 洗牌, 依座位順序每人一張再莊家一張, 共發兩輪
  - 拿到 Blackjack 的座位直接停牌, 不參與輪轉
*/
func (be *blackjackEngine) startRound() error {
	bettors := be.table.BettingSeats()
	if len(bettors) == 0 {
		return ErrTableNotEnoughPlayers
	}

	be.shoe.Reset()
	be.table.State.RoundCount++
	be.table.State.DealerHand = card.Hand{}
	be.table.State.CurrentSeatIdx = UnsetValue
	for _, seat := range be.table.State.Seats {
		seat.Hand = card.Hand{}
	}

	be.setStatus(TableStateStatus_Dealing)

	for i := 0; i < 2; i++ {
		for _, seat := range bettors {
			seat.Hand = append(seat.Hand, be.shoe.Draw())
		}
		be.table.State.DealerHand = append(be.table.State.DealerHand, be.shoe.Draw())
	}

	for _, seat := range bettors {
		if seat.Hand.IsNatural() {
			seat.Status = SeatStatus_Stood
		}
	}

	be.logger.Debug("round dealt",
		zap.String("table_id", be.table.ID),
		zap.Int("round", be.table.State.RoundCount),
		zap.Int("bettors", len(bettors)),
	)
	be.emitEvent("StartRound", be.table.State.HostID)

	be.advanceTurn(UnsetValue)
	return nil
}

// advanceTurn hands the turn to the next seat after from that still has a decision to make.
func (be *blackjackEngine) advanceTurn(from int) {
	seats := be.table.State.Seats
	n := len(seats)

	for i := 0; i < n; i++ {
		idx := (from + 1 + i) % n
		if idx < 0 {
			idx += n
		}

		seat := seats[idx]
		if seat.Bet > 0 && (seat.Status == SeatStatus_Ready || seat.Status == SeatStatus_Active) {
			seat.Status = SeatStatus_Active
			be.table.State.CurrentSeatIdx = idx
			be.setStatus(TableStateStatus_PlayerTurn)
			be.emitEvent("TurnAdvanced", seat.PlayerID)
			return
		}
	}

	be.table.State.CurrentSeatIdx = UnsetValue
	be.setStatus(TableStateStatus_DealerTurn)
	be.emitEvent("DealerTurn", "")
	be.schedule(be.options.DealerDrawInterval, be.dealerStep)
}

// dealerStep draws one card at a time until the dealer reaches 17.
func (be *blackjackEngine) dealerStep() {
	if be.table.State.DealerHand.Score() >= DealerStandScore {
		be.settle()
		return
	}

	be.table.State.DealerHand = append(be.table.State.DealerHand, be.shoe.Draw())
	be.emitEvent("DealerDraw", "")
	be.schedule(be.options.DealerDrawInterval, be.dealerStep)
}

func (be *blackjackEngine) settle() {
	dealer := be.table.State.DealerHand

	for _, seat := range be.table.BettingSeats() {
		outcome, payout := SettleBlackjack(seat.Hand, dealer, seat.Bet)

		var balance int64
		var err error
		if payout > 0 {
			balance, err = be.wallet.Credit(seat.PlayerID, payout)
		} else {
			balance, err = be.wallet.Balance(seat.PlayerID)
		}
		if err != nil {
			be.emitErrorEvent("Settle", seat.PlayerID, err)
		}

		be.emitSeatResultEvent(&SeatResult{
			TableID:  be.table.ID,
			PlayerID: seat.PlayerID,
			Result:   outcome,
			Message:  resultMessage(outcome, seat.Hand.Score(), dealer.Score()),
			Bet:      seat.Bet,
			Payout:   payout,
			Winnings: payout - seat.Bet,
			Balance:  balance,
		})
	}

	be.setStatus(TableStateStatus_Results)
	be.emitEvent("Settle", "")
	be.schedule(be.options.ResultDisplayDuration, be.resetRound)
}

func (be *blackjackEngine) resetRound() {
	be.table.ResetRound()
	if len(be.table.State.Seats) >= be.table.Meta.MinPlayerCount {
		be.setStatus(TableStateStatus_WaitingForBets)
	} else {
		be.setStatus(TableStateStatus_WaitingForPlayers)
	}

	be.emitEvent("ResetRound", "")
}

/*
refreshStatus 依座位人數與下注狀況校正等待中的狀態
  - 牌局進行中或結算中不變動
*/
func (be *blackjackEngine) refreshStatus() {
	switch be.table.State.Status {
	case TableStateStatus_WaitingForPlayers, TableStateStatus_WaitingForBets, TableStateStatus_ReadyToStart:
	default:
		return
	}

	switch {
	case len(be.table.State.Seats) < be.table.Meta.MinPlayerCount || be.table.IsEmpty():
		be.setStatus(TableStateStatus_WaitingForPlayers)
	case be.table.AllSeatsBet():
		be.setStatus(TableStateStatus_ReadyToStart)
	default:
		be.setStatus(TableStateStatus_WaitingForBets)
	}
}

/*
leave 玩家離桌
  - 開局前離桌: 退還下注
  - 開局後離桌: 下注沒收, 若輪到該座位則視同停牌
  - 最後一位玩家於牌局中離開: 放棄本局回到 WAITING_FOR_PLAYERS
*/
func (be *blackjackEngine) leave(seatIdx int) {
	seat := be.table.State.Seats[seatIdx]
	wasCurrent := be.table.State.CurrentSeatIdx == seatIdx

	if seat.Bet > 0 && !be.table.IsRoundInProgress() && be.table.State.Status != TableStateStatus_Results {
		if _, err := be.wallet.Credit(seat.PlayerID, seat.Bet); err != nil {
			be.emitErrorEvent("RefundBet", seat.PlayerID, err)
		}
	}

	be.table.RemoveSeat(seatIdx)

	if be.table.IsEmpty() && (be.table.IsRoundInProgress() || be.table.State.Status == TableStateStatus_Results) {
		be.tb.Cancel()
		be.table.ResetRound()
		be.setStatus(TableStateStatus_WaitingForPlayers)
		return
	}

	if wasCurrent && be.table.State.Status == TableStateStatus_PlayerTurn {
		be.table.State.CurrentSeatIdx = UnsetValue
		be.advanceTurn(seatIdx - 1)
		return
	}

	be.refreshStatus()
}

// release refunds every bet that has not been settled yet.
func (be *blackjackEngine) release() {
	if be.table.State.Status == TableStateStatus_Results {
		return
	}

	for _, seat := range be.table.BettingSeats() {
		if _, err := be.wallet.Credit(seat.PlayerID, seat.Bet); err != nil {
			be.emitErrorEvent("RefundBet", seat.PlayerID, err)
		}
		seat.Bet = 0
	}
}

/*
SettleBlackjack 結算單一座位, 回傳結果與返還總額 (含本金)
  - 爆牌: 輸
  - 玩家 Blackjack 而莊家不是: 1.5 倍 (無條件捨去)
  - 雙方 Blackjack: 平手
  - 莊家爆牌: 1 倍
  - 比點數: 大者勝, 相同平手
*/
func SettleBlackjack(player, dealer card.Hand, bet int64) (string, int64) {
	switch {
	case player.IsBust():
		return SeatResult_Bust, 0
	case player.IsNatural() && !dealer.IsNatural():
		return SeatResult_Blackjack, bet + bet*3/2
	case player.IsNatural() && dealer.IsNatural():
		return SeatResult_Push, bet
	case dealer.IsBust():
		return SeatResult_Win, bet * 2
	case player.Score() > dealer.Score():
		return SeatResult_Win, bet * 2
	case player.Score() == dealer.Score():
		return SeatResult_Push, bet
	}

	return SeatResult_Lose, 0
}

func resultMessage(outcome string, playerScore, dealerScore int) string {
	switch outcome {
	case SeatResult_Blackjack:
		return "Blackjack! You win 3:2."
	case SeatResult_Bust:
		return fmt.Sprintf("Bust with %d. You lose.", playerScore)
	case SeatResult_Win:
		if dealerScore > BlackjackScore {
			return fmt.Sprintf("Dealer busts with %d. You win!", dealerScore)
		}
		return fmt.Sprintf("%d beats dealer's %d. You win!", playerScore, dealerScore)
	case SeatResult_Push:
		return fmt.Sprintf("Push at %d. Bet returned.", playerScore)
	}
	return fmt.Sprintf("Dealer's %d beats your %d. You lose.", dealerScore, playerScore)
}
