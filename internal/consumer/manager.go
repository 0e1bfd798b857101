package consumer

import (
	"sync"

	"go.uber.org/zap"
	"wisefido-hrv/internal/config"
	"wisefido-hrv/internal/models"
	"wisefido-hrv/internal/pipeline"
	"wisefido-hrv/internal/repository"
)

// SessionManager 每设备会话注册表
//
// attach 创建会话（加载设备调参档案），detach/关停时关闭会话。
// 一个设备同一时刻只有一个会话；重复attach先关旧会话。
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]*pipeline.Session

	baseCfg     config.PipelineConfig
	profileRepo *repository.ProfileRepository
	sink        pipeline.Sink
	logger      *zap.Logger
}

// NewSessionManager 创建会话注册表
func NewSessionManager(
	baseCfg config.PipelineConfig,
	profileRepo *repository.ProfileRepository,
	sink pipeline.Sink,
	logger *zap.Logger,
) *SessionManager {
	return &SessionManager{
		sessions:    make(map[string]*pipeline.Session),
		baseCfg:     baseCfg,
		profileRepo: profileRepo,
		sink:        sink,
		logger:      logger,
	}
}

// Attach 为设备创建并启动会话
func (m *SessionManager) Attach(deviceID string, rates models.SamplingRates) *pipeline.Session {
	m.mu.Lock()
	old := m.sessions[deviceID]
	delete(m.sessions, deviceID)
	m.mu.Unlock()

	if old != nil {
		m.logger.Warn("Replacing existing session on re-attach",
			zap.String("device_id", deviceID),
		)
		old.Close()
	}

	// 加载设备调参档案（查询失败时退回默认配置）
	cfg := m.baseCfg
	profile, err := m.profileRepo.GetProfile(deviceID)
	if err != nil {
		m.logger.Warn("Failed to load device profile, using defaults",
			zap.String("device_id", deviceID),
			zap.Error(err),
		)
	}
	profile.Apply(&cfg)
	cfg.Normalize(m.logger)

	session := pipeline.NewSession(deviceID, rates, cfg, m.sink, m.logger)
	session.Start()

	m.mu.Lock()
	m.sessions[deviceID] = session
	m.mu.Unlock()

	return session
}

// Get 查找设备会话
func (m *SessionManager) Get(deviceID string) (*pipeline.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[deviceID]
	return s, ok
}

// Detach 关闭并移除设备会话
func (m *SessionManager) Detach(deviceID string) {
	m.mu.Lock()
	s := m.sessions[deviceID]
	delete(m.sessions, deviceID)
	m.mu.Unlock()

	if s != nil {
		s.Close()
	}
}

// CloseAll 关闭全部会话（服务关停时调用）
func (m *SessionManager) CloseAll() {
	m.mu.Lock()
	sessions := make([]*pipeline.Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[string]*pipeline.Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}

// Count 当前会话数
func (m *SessionManager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
