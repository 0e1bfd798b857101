package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoad_DefaultValues(t *testing.T) {
	// 清除环境变量
	os.Clearenv()

	cfg, err := Load()
	require.NoError(t, err)
	assert.NotNil(t, cfg)

	// 验证默认值
	assert.Equal(t, "", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "postgres", cfg.Database.User)
	assert.Equal(t, "owlrd", cfg.Database.Database)
	assert.Equal(t, "disable", cfg.Database.SSLMode)

	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "", cfg.Redis.Password)
	assert.Equal(t, 0, cfg.Redis.DB)

	assert.Equal(t, "tcp://localhost:1883", cfg.MQTT.Broker)
	assert.Equal(t, "wisefido-hrv", cfg.MQTT.ClientID)

	assert.Equal(t, "hrv/+/ecg", cfg.HRV.Topics.Ecg)
	assert.Equal(t, "hrv/+/acc", cfg.HRV.Topics.Acc)
	assert.Equal(t, "hrv/+/rr", cfg.HRV.Topics.Rr)
	assert.Equal(t, "hrv:metric:stream", cfg.HRV.Streams.Metric)
	assert.Equal(t, "vital-focus:hrv:", cfg.HRV.Cache.RealtimeKeyPrefix)
	assert.Equal(t, ":realtime", cfg.HRV.Cache.RealtimeSuffix)
	assert.Equal(t, 30, cfg.HRV.Cache.RealtimeTTL)

	// 管线默认值
	p := cfg.HRV.Pipeline
	assert.Equal(t, 5000, p.EcgBufferSize)
	assert.Equal(t, 500, p.AccBufferSize)
	assert.Equal(t, 60, p.RrWindowCount)
	assert.Equal(t, 15, p.LmsFilterOrder)
	assert.Equal(t, 0.005, p.LmsStepSize)
	assert.Equal(t, 0.15, p.MotionThresholdG)
	assert.Equal(t, 50, p.DisplayTickMs)
	assert.Equal(t, 5.0, p.HistorySeconds)
	assert.Equal(t, "fridericia", p.QtcFormula)
	assert.Equal(t, 1.0, p.Bands.VLF)
	assert.Equal(t, 4.5, p.Bands.LF)
	assert.Equal(t, 0.87, p.Bands.HF)
	assert.Equal(t, 8.0, p.Bands.Total)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	os.Setenv("DB_HOST", "test-host")
	os.Setenv("REDIS_ADDR", "test-redis:6380")
	os.Setenv("RR_WINDOW_COUNT", "120")
	os.Setenv("LMS_STEP_SIZE", "0.01")
	os.Setenv("QTC_FORMULA", "bazett")
	os.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "test-host", cfg.Database.Host)
	assert.Equal(t, "test-redis:6380", cfg.Redis.Addr)
	assert.Equal(t, 120, cfg.HRV.Pipeline.RrWindowCount)
	assert.Equal(t, 0.01, cfg.HRV.Pipeline.LmsStepSize)
	assert.Equal(t, "bazett", cfg.HRV.Pipeline.QtcFormula)
	assert.Equal(t, "debug", cfg.Log.Level)

	os.Clearenv()
}

func TestPipelineConfig_Normalize_Clamps(t *testing.T) {
	logger := zap.NewNop()

	p := DefaultPipelineConfig()
	p.RrWindowCount = 1 // 低于下限 2
	p.Normalize(logger)
	assert.Equal(t, 2, p.RrWindowCount)

	p = DefaultPipelineConfig()
	p.RrWindowCount = 5000 // 高于上限 1000
	p.Normalize(logger)
	assert.Equal(t, 1000, p.RrWindowCount)

	p = DefaultPipelineConfig()
	p.LmsStepSize = -1
	p.MotionThresholdG = 100
	p.QtcFormula = "hodges"
	p.Normalize(logger)
	assert.Equal(t, 1e-6, p.LmsStepSize)
	assert.Equal(t, 5.0, p.MotionThresholdG)
	assert.Equal(t, "fridericia", p.QtcFormula)
}

func TestPipelineConfig_Normalize_KeepsValid(t *testing.T) {
	logger := zap.NewNop()

	p := DefaultPipelineConfig()
	p.Normalize(logger)

	// 默认值本身合法，不应被修改
	assert.Equal(t, DefaultPipelineConfig(), p)
}

func TestGetEnv(t *testing.T) {
	os.Clearenv()
	value := getEnv("TEST_KEY", "default-value")
	assert.Equal(t, "default-value", value)

	os.Setenv("TEST_KEY", "env-value")
	value = getEnv("TEST_KEY", "default-value")
	assert.Equal(t, "env-value", value)

	os.Unsetenv("TEST_KEY")
}
