package cardtable

import (
	"encoding/json"

	"github.com/weedbox/pokerface"
	"go.uber.org/zap"
)

// PokerBackend runs pokerface games from a stored state, so a table only keeps the GameState.
type PokerBackend struct {
	engine pokerface.PokerFace
	logger *zap.Logger
}

func NewPokerBackend(logger *zap.Logger) *PokerBackend {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &PokerBackend{
		engine: pokerface.NewPokerFace(),
		logger: logger,
	}
}

// cloneGameState detaches a state from the pokerface game that produced it.
func cloneGameState(gs *pokerface.GameState) *pokerface.GameState {
	data, err := json.Marshal(gs)
	if err != nil {
		return nil
	}

	var state pokerface.GameState
	err = json.Unmarshal(data, &state)
	if err != nil {
		return nil
	}

	return &state
}

func (pb *PokerBackend) CreateGame(opts *pokerface.GameOptions) (*pokerface.GameState, error) {
	g := pb.engine.NewGame(opts)
	if err := g.Start(); err != nil {
		return nil, err
	}

	gs := cloneGameState(g.GetState())
	pb.logger.Debug("poker game created", zap.String("game_id", gs.GameID))
	return gs, nil
}

func (pb *PokerBackend) apply(action string, gs *pokerface.GameState, fn func(g pokerface.Game) error) (*pokerface.GameState, error) {
	g := pb.engine.NewGameFromState(cloneGameState(gs))
	if err := fn(g); err != nil {
		pb.logger.Debug("poker action rejected",
			zap.String("game_id", gs.GameID),
			zap.String("action", action),
			zap.Error(err),
		)
		return nil, err
	}

	return cloneGameState(g.GetState()), nil
}

func (pb *PokerBackend) ReadyForAll(gs *pokerface.GameState) (*pokerface.GameState, error) {
	return pb.apply("ready_for_all", gs, func(g pokerface.Game) error {
		return g.ReadyForAll()
	})
}

func (pb *PokerBackend) PayAnte(gs *pokerface.GameState) (*pokerface.GameState, error) {
	return pb.apply("pay_ante", gs, func(g pokerface.Game) error {
		return g.PayAnte()
	})
}

func (pb *PokerBackend) PayBlinds(gs *pokerface.GameState) (*pokerface.GameState, error) {
	return pb.apply("pay_blinds", gs, func(g pokerface.Game) error {
		return g.PayBlinds()
	})
}

func (pb *PokerBackend) Next(gs *pokerface.GameState) (*pokerface.GameState, error) {
	return pb.apply("next", gs, func(g pokerface.Game) error {
		return g.Next()
	})
}

func (pb *PokerBackend) Fold(gs *pokerface.GameState) (*pokerface.GameState, error) {
	return pb.apply(WagerAction_Fold, gs, func(g pokerface.Game) error {
		return g.Fold()
	})
}

func (pb *PokerBackend) Check(gs *pokerface.GameState) (*pokerface.GameState, error) {
	return pb.apply(WagerAction_Check, gs, func(g pokerface.Game) error {
		return g.Check()
	})
}

func (pb *PokerBackend) Call(gs *pokerface.GameState) (*pokerface.GameState, error) {
	return pb.apply(WagerAction_Call, gs, func(g pokerface.Game) error {
		return g.Call()
	})
}

func (pb *PokerBackend) Raise(gs *pokerface.GameState, chipLevel int64) (*pokerface.GameState, error) {
	return pb.apply(WagerAction_Raise, gs, func(g pokerface.Game) error {
		return g.Raise(chipLevel)
	})
}

func (pb *PokerBackend) Allin(gs *pokerface.GameState) (*pokerface.GameState, error) {
	return pb.apply(WagerAction_AllIn, gs, func(g pokerface.Game) error {
		return g.Allin()
	})
}

func (pb *PokerBackend) Pass(gs *pokerface.GameState) (*pokerface.GameState, error) {
	return pb.apply(WagerAction_Pass, gs, func(g pokerface.Game) error {
		return g.Pass()
	})
}
