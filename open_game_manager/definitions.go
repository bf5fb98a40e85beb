package open_game_manager

import (
	"errors"
	"sync"

	"github.com/weedbox/syncsaga"
)

var (
	ErrParticipantNotFound = errors.New("open_game_manager: participant not found")
	ErrNotRunning          = errors.New("open_game_manager: not waiting for participants")
)

// OpenGameManager gates the opening of the next round on its participants being ready.
// Participants that stay idle past the timeout are marked ready automatically.
type OpenGameManager interface {
	Ready(participantID string) error
	Setup(gameCount int, participants map[string]int)
	Stop()
	GetState() OpenGameState
}

type openGameManager struct {
	mu              sync.Mutex
	onOpenGameReady func(state OpenGameState)
	rg              *syncsaga.ReadyGroup
	state           *OpenGameState
}

type OpenGameOption struct {
	Timeout         int
	OnOpenGameReady func(state OpenGameState)
}

type OpenGameState struct {
	Timeout      int                             `json:"timeout"`
	GameCount    int                             `json:"game_count"`
	IsRunning    bool                            `json:"is_running"`
	Participants map[string]*OpenGameParticipant `json:"participants"` // key: participant_id, value: participant
}

type OpenGameParticipant struct {
	ID      string `json:"id"`
	Index   int    `json:"index"`
	IsReady bool   `json:"is_ready"`
}
