package consumer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"wisefido-hrv/internal/config"
	"wisefido-hrv/internal/models"
	"wisefido-hrv/internal/repository"
)

func newTestManager() *SessionManager {
	return NewSessionManager(
		config.DefaultPipelineConfig(),
		repository.NewProfileRepository(nil, zap.NewNop()),
		nil,
		zap.NewNop(),
	)
}

func newTestConsumer(m *SessionManager) *MQTTConsumer {
	cfg, _ := config.Load()
	return NewMQTTConsumer(cfg, nil, m, zap.NewNop())
}

func TestDeviceFromTopic(t *testing.T) {
	id, err := deviceFromTopic("hrv/device-1/ecg")
	require.NoError(t, err)
	assert.Equal(t, "device-1", id)

	_, err = deviceFromTopic("hrv/ecg")
	assert.Error(t, err)

	_, err = deviceFromTopic("hrv//ecg")
	assert.Error(t, err)
}

func TestHandleAttach_CreatesSession(t *testing.T) {
	m := newTestManager()
	c := newTestConsumer(m)
	defer m.CloseAll()

	err := c.handleAttach("hrv/device-1/attach", []byte(`{"fs_ecg":130,"fs_acc":200}`))
	require.NoError(t, err)

	s, ok := m.Get("device-1")
	require.True(t, ok)
	assert.Equal(t, "device-1", s.DeviceID)
	assert.Equal(t, 1, m.Count())
}

func TestHandleAttach_InvalidRates(t *testing.T) {
	m := newTestManager()
	c := newTestConsumer(m)

	err := c.handleAttach("hrv/device-1/attach", []byte(`{"fs_ecg":0,"fs_acc":200}`))
	assert.Error(t, err)
	assert.Equal(t, 0, m.Count())
}

func TestHandleAttach_MalformedPayload(t *testing.T) {
	m := newTestManager()
	c := newTestConsumer(m)

	err := c.handleAttach("hrv/device-1/attach", []byte(`not json`))
	assert.Error(t, err)
}

func TestHandleData_RoutesToSession(t *testing.T) {
	m := newTestManager()
	c := newTestConsumer(m)
	defer m.CloseAll()

	require.NoError(t, c.handleAttach("hrv/device-1/attach", []byte(`{"fs_ecg":130,"fs_acc":200}`)))
	s, _ := m.Get("device-1")

	require.NoError(t, c.handleEcg("hrv/device-1/ecg", []byte(`{"samples":[100,200,300]}`)))
	require.NoError(t, c.handleAcc("hrv/device-1/acc", []byte(`{"x":[0],"y":[0],"z":[100]}`)))
	require.NoError(t, c.handleRr("hrv/device-1/rr", []byte(`{"rr_ms":1000}`)))

	// 事件循环异步消费：轮询等待指标出现
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := s.Metrics().Get("hr_bpm"); ok {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	hr, ok := s.Metrics().Get("hr_bpm")
	require.True(t, ok)
	assert.InDelta(t, 60, hr.Value, 1e-9)
}

func TestHandleData_UnknownDevice(t *testing.T) {
	m := newTestManager()
	c := newTestConsumer(m)

	err := c.handleEcg("hrv/ghost/ecg", []byte(`{"samples":[1]}`))
	assert.Error(t, err)
	err = c.handleRr("hrv/ghost/rr", []byte(`{"rr_ms":900}`))
	assert.Error(t, err)
}

func TestHandleDetach_ClosesSession(t *testing.T) {
	m := newTestManager()
	c := newTestConsumer(m)

	require.NoError(t, c.handleAttach("hrv/device-1/attach", []byte(`{"fs_ecg":130,"fs_acc":200}`)))
	require.NoError(t, c.handleDetach("hrv/device-1/detach", nil))

	_, ok := m.Get("device-1")
	assert.False(t, ok)
	assert.Equal(t, 0, m.Count())

	// 重复detach无害
	require.NoError(t, c.handleDetach("hrv/device-1/detach", nil))
}

func TestManager_ReattachReplacesSession(t *testing.T) {
	m := newTestManager()
	defer m.CloseAll()

	first := m.Attach("device-1", models.SamplingRates{FsEcg: 130, FsAcc: 200})
	second := m.Attach("device-1", models.SamplingRates{FsEcg: 130, FsAcc: 200})

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 1, m.Count())

	current, ok := m.Get("device-1")
	require.True(t, ok)
	assert.Equal(t, second.ID, current.ID)
}

func TestManager_CloseAll(t *testing.T) {
	m := newTestManager()
	m.Attach("a", models.SamplingRates{FsEcg: 130, FsAcc: 200})
	m.Attach("b", models.SamplingRates{FsEcg: 130, FsAcc: 200})
	require.Equal(t, 2, m.Count())

	m.CloseAll()
	assert.Equal(t, 0, m.Count())
}
