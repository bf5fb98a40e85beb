package open_game_manager

func (m *openGameManager) readyGroupResetParticipants() {
	m.rg.ResetParticipants()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.state.Participants = map[string]*OpenGameParticipant{}
}

func (m *openGameManager) readyGroupAddParticipant(participant OpenGameParticipant, isReady bool) {
	m.mu.Lock()
	m.state.Participants[participant.ID] = &OpenGameParticipant{
		ID:      participant.ID,
		Index:   participant.Index,
		IsReady: isReady,
	}
	m.mu.Unlock()

	m.rg.Add(int64(participant.Index), isReady)
}

func (m *openGameManager) readyGroupOnCompleted() {
	m.mu.Lock()
	if !m.state.IsRunning {
		m.mu.Unlock()
		return
	}

	for participantID := range m.state.Participants {
		m.state.Participants[participantID].IsReady = true
	}
	m.state.IsRunning = false
	m.mu.Unlock()

	m.onOpenGameReady(m.GetState())
}

func (m *openGameManager) readyGroupReady(participantID string) error {
	m.mu.Lock()
	if !m.state.IsRunning {
		m.mu.Unlock()
		return ErrNotRunning
	}

	participant, exist := m.state.Participants[participantID]
	if !exist {
		m.mu.Unlock()
		return ErrParticipantNotFound
	}
	participant.IsReady = true
	idx := participant.Index
	m.mu.Unlock()

	m.rg.Ready(int64(idx))
	return nil
}
