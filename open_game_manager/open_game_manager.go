package open_game_manager

import (
	"github.com/weedbox/syncsaga"
)

func NewOpenGameManager(options OpenGameOption) OpenGameManager {
	m := &openGameManager{
		onOpenGameReady: options.OnOpenGameReady,
		rg: syncsaga.NewReadyGroup(syncsaga.WithTimeout(options.Timeout, func(rg *syncsaga.ReadyGroup) {
			// Auto Ready By Default
			for idx, isReady := range rg.GetParticipantStates() {
				if !isReady {
					rg.Ready(idx)
				}
			}
		})),
	}
	m.state = &OpenGameState{
		Timeout:      options.Timeout,
		GameCount:    0,
		Participants: make(map[string]*OpenGameParticipant),
	}

	if m.onOpenGameReady == nil {
		m.onOpenGameReady = func(OpenGameState) {}
	}

	return m
}

func (m *openGameManager) Ready(participantID string) error {
	return m.readyGroupReady(participantID)
}

/*
Setup 準備下一局的開局等待
  - 取消前一次尚未完成的等待
  - 所有參與者就緒 (或逾時自動就緒) 後觸發 OnOpenGameReady
*/
func (m *openGameManager) Setup(gameCount int, participants map[string]int) {
	m.rg.Stop()

	m.mu.Lock()
	m.state.GameCount = gameCount
	m.state.IsRunning = true
	m.mu.Unlock()

	m.rg.OnCompleted(func(rg *syncsaga.ReadyGroup) {
		m.readyGroupOnCompleted()
	})
	m.readyGroupResetParticipants()
	for id, idx := range participants {
		participant := OpenGameParticipant{
			ID:      id,
			Index:   idx,
			IsReady: false,
		}
		m.readyGroupAddParticipant(participant, false)
	}

	m.rg.Start()
}

func (m *openGameManager) Stop() {
	m.rg.Stop()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.state.IsRunning = false
}

func (m *openGameManager) GetState() OpenGameState {
	m.mu.Lock()
	defer m.mu.Unlock()

	participants := make(map[string]*OpenGameParticipant, len(m.state.Participants))
	for id, p := range m.state.Participants {
		cloned := *p
		participants[id] = &cloned
	}

	return OpenGameState{
		Timeout:      m.state.Timeout,
		GameCount:    m.state.GameCount,
		IsRunning:    m.state.IsRunning,
		Participants: participants,
	}
}
