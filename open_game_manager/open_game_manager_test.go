package open_game_manager

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func Test_InitOpenGameManager(t *testing.T) {
	options := OpenGameOption{
		Timeout:         1,
		OnOpenGameReady: func(state OpenGameState) {},
	}

	m := NewOpenGameManager(options)

	assert.Equal(t, options.Timeout, m.GetState().Timeout)
	assert.Equal(t, 0, m.GetState().GameCount)
	assert.Equal(t, 0, len(m.GetState().Participants))
	assert.False(t, m.GetState().IsRunning)
}

func Test_OpenGameManager_ReadyAll(t *testing.T) {
	var readyCount int32
	var readyGameCount int32
	m := NewOpenGameManager(OpenGameOption{
		Timeout: 10,
		OnOpenGameReady: func(state OpenGameState) {
			atomic.AddInt32(&readyCount, 1)
			atomic.StoreInt32(&readyGameCount, int32(state.GameCount))
			for _, participant := range state.Participants {
				assert.True(t, participant.IsReady)
			}
		},
	})

	m.Setup(3, map[string]int{
		"host":  0,
		"guest": 1,
	})
	assert.True(t, m.GetState().IsRunning)
	assert.Len(t, m.GetState().Participants, 2)

	assert.ErrorIs(t, m.Ready("stranger"), ErrParticipantNotFound)
	assert.NoError(t, m.Ready("host"))
	assert.True(t, m.GetState().Participants["host"].IsReady)
	assert.Equal(t, int32(0), atomic.LoadInt32(&readyCount))

	assert.NoError(t, m.Ready("guest"))
	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&readyCount) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(3), atomic.LoadInt32(&readyGameCount))
	assert.False(t, m.GetState().IsRunning)

	m.Stop()
}

func Test_OpenGameManager_AutoReadyOnTimeout(t *testing.T) {
	var readyCount int32
	m := NewOpenGameManager(OpenGameOption{
		Timeout: 1,
		OnOpenGameReady: func(state OpenGameState) {
			atomic.AddInt32(&readyCount, 1)
		},
	})

	m.Setup(1, map[string]int{"host": 0})

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&readyCount) == 1
	}, 3*time.Second, 50*time.Millisecond)
}

func Test_OpenGameManager_Stop(t *testing.T) {
	var readyCount int32
	m := NewOpenGameManager(OpenGameOption{
		Timeout: 1,
		OnOpenGameReady: func(state OpenGameState) {
			atomic.AddInt32(&readyCount, 1)
		},
	})

	m.Setup(1, map[string]int{"host": 0})
	m.Stop()

	assert.ErrorIs(t, m.Ready("host"), ErrNotRunning)

	time.Sleep(1500 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&readyCount))
}
