package config

import (
	"os"
	"strconv"

	"go.uber.org/zap"
	"wisefido-hrv/pkg/database"
)

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MQTTConfig MQTT配置
type MQTTConfig struct {
	Broker   string
	ClientID string
	Username string
	Password string
	QoS      byte
}

// BandNorm 频域功率归一化常数表
// 源数据各版本常数不一致，因此做成配置表而不是硬编码
type BandNorm struct {
	VLF   float64
	LF    float64
	HF    float64
	Total float64
}

// PipelineConfig 信号处理管线参数
//
// 范围越界的值由 Normalize 钳制到边界并记录警告，不会导致启动失败
type PipelineConfig struct {
	// 缓冲区容量
	EcgBufferSize int // ECG环形缓冲容量（样本数）
	AccBufferSize int // 加速度对齐缓冲容量（样本数）
	RrWindowCount int // R-R滑动窗口容量（2..1000）

	// 运动伪迹消除（NLMS）
	LmsFilterOrder   int     // 抽头数 L
	LmsStepSize      float64 // 步长 μ
	MotionThresholdG float64 // 运动判定阈值（g）

	// 显示与检测
	DisplayTickMs  int     // 显示刷新周期（ms）
	HistorySeconds float64 // 显示/检测窗口（秒）

	// QT校正公式: "bazett" 或 "fridericia"
	QtcFormula string

	// 频域归一化常数
	Bands BandNorm
}

// Config wisefido-hrv 服务配置
type Config struct {
	Database database.Config
	Redis    RedisConfig
	MQTT     MQTTConfig

	HRV struct {
		Topics struct {
			Attach string // 流接入主题，如 "hrv/+/attach"
			Detach string // 流断开主题，如 "hrv/+/detach"
			Ecg    string // ECG批量数据主题，如 "hrv/+/ecg"
			Acc    string // 加速度帧主题，如 "hrv/+/acc"
			Rr     string // R-R间期主题，如 "hrv/+/rr"
		}
		Streams struct {
			Metric   string // 指标输出流
			Fiducial string // 基准点输出流
			Qt       string // QT事件输出流
		}
		Cache struct {
			RealtimeKeyPrefix string // 实时快照键前缀
			RealtimeSuffix    string // 实时快照键后缀
			RealtimeTTL       int    // 快照TTL（秒）
		}
		Pipeline PipelineConfig
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 加载配置
func Load() (*Config, error) {
	cfg := &Config{}

	// 数据库（可选：DB_HOST 为空时跳过连接，调参档案使用默认值）
	cfg.Database.Host = getEnv("DB_HOST", "")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "owlrd")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "wisefido-hrv")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.QoS = 1

	// 主题
	cfg.HRV.Topics.Attach = getEnv("HRV_TOPIC_ATTACH", "hrv/+/attach")
	cfg.HRV.Topics.Detach = getEnv("HRV_TOPIC_DETACH", "hrv/+/detach")
	cfg.HRV.Topics.Ecg = getEnv("HRV_TOPIC_ECG", "hrv/+/ecg")
	cfg.HRV.Topics.Acc = getEnv("HRV_TOPIC_ACC", "hrv/+/acc")
	cfg.HRV.Topics.Rr = getEnv("HRV_TOPIC_RR", "hrv/+/rr")

	// 输出流
	cfg.HRV.Streams.Metric = getEnv("HRV_STREAM_METRIC", "hrv:metric:stream")
	cfg.HRV.Streams.Fiducial = getEnv("HRV_STREAM_FIDUCIAL", "hrv:fiducial:stream")
	cfg.HRV.Streams.Qt = getEnv("HRV_STREAM_QT", "hrv:qt:stream")

	// 实时快照缓存
	cfg.HRV.Cache.RealtimeKeyPrefix = getEnv("HRV_CACHE_PREFIX", "vital-focus:hrv:")
	cfg.HRV.Cache.RealtimeSuffix = getEnv("HRV_CACHE_SUFFIX", ":realtime")
	cfg.HRV.Cache.RealtimeTTL = getEnvInt("HRV_CACHE_TTL", 30)

	// 管线参数
	cfg.HRV.Pipeline = DefaultPipelineConfig()
	cfg.HRV.Pipeline.RrWindowCount = getEnvInt("RR_WINDOW_COUNT", cfg.HRV.Pipeline.RrWindowCount)
	cfg.HRV.Pipeline.LmsFilterOrder = getEnvInt("LMS_FILTER_ORDER", cfg.HRV.Pipeline.LmsFilterOrder)
	cfg.HRV.Pipeline.LmsStepSize = getEnvFloat("LMS_STEP_SIZE", cfg.HRV.Pipeline.LmsStepSize)
	cfg.HRV.Pipeline.MotionThresholdG = getEnvFloat("MOTION_THRESHOLD_G", cfg.HRV.Pipeline.MotionThresholdG)
	cfg.HRV.Pipeline.DisplayTickMs = getEnvInt("DISPLAY_TICK_MS", cfg.HRV.Pipeline.DisplayTickMs)
	cfg.HRV.Pipeline.HistorySeconds = getEnvFloat("HISTORY_SECONDS", cfg.HRV.Pipeline.HistorySeconds)
	cfg.HRV.Pipeline.QtcFormula = getEnv("QTC_FORMULA", cfg.HRV.Pipeline.QtcFormula)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

// DefaultPipelineConfig 管线参数默认值
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		EcgBufferSize:    5000,
		AccBufferSize:    500,
		RrWindowCount:    60,
		LmsFilterOrder:   15,
		LmsStepSize:      0.005,
		MotionThresholdG: 0.15,
		DisplayTickMs:    50,
		HistorySeconds:   5,
		QtcFormula:       "fridericia",
		Bands: BandNorm{
			VLF:   1,
			LF:    4.5,
			HF:    0.87,
			Total: 8,
		},
	}
}

// Normalize 钳制管线参数到合法范围
// 越界值钳到边界并记录警告，从不报错
func (p *PipelineConfig) Normalize(logger *zap.Logger) {
	p.RrWindowCount = clampInt(logger, "rr_window_count", p.RrWindowCount, 2, 1000)
	p.EcgBufferSize = clampInt(logger, "ecg_buffer_size", p.EcgBufferSize, 100, 100000)
	p.AccBufferSize = clampInt(logger, "acc_buffer_size", p.AccBufferSize, 10, 10000)
	p.LmsFilterOrder = clampInt(logger, "lms_filter_order", p.LmsFilterOrder, 1, 128)
	p.LmsStepSize = clampFloat(logger, "lms_step_size", p.LmsStepSize, 1e-6, 1.0)
	p.MotionThresholdG = clampFloat(logger, "motion_threshold_g", p.MotionThresholdG, 0.01, 5.0)
	p.DisplayTickMs = clampInt(logger, "display_tick_ms", p.DisplayTickMs, 10, 1000)
	p.HistorySeconds = clampFloat(logger, "history_seconds", p.HistorySeconds, 1, 60)

	if p.QtcFormula != "bazett" && p.QtcFormula != "fridericia" {
		logger.Warn("Invalid QTc formula, falling back to fridericia",
			zap.String("qtc_formula", p.QtcFormula),
		)
		p.QtcFormula = "fridericia"
	}
}

func clampInt(logger *zap.Logger, name string, v, lo, hi int) int {
	if v < lo {
		logger.Warn("Config value below range, clamped",
			zap.String("name", name), zap.Int("value", v), zap.Int("min", lo))
		return lo
	}
	if v > hi {
		logger.Warn("Config value above range, clamped",
			zap.String("name", name), zap.Int("value", v), zap.Int("max", hi))
		return hi
	}
	return v
}

func clampFloat(logger *zap.Logger, name string, v, lo, hi float64) float64 {
	if v < lo {
		logger.Warn("Config value below range, clamped",
			zap.String("name", name), zap.Float64("value", v), zap.Float64("min", lo))
		return lo
	}
	if v > hi {
		logger.Warn("Config value above range, clamped",
			zap.String("name", name), zap.Float64("value", v), zap.Float64("max", hi))
		return hi
	}
	return v
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
