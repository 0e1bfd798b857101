package repository

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"
	"wisefido-hrv/internal/config"
)

// DeviceProfile 设备调参档案
// 只读配置：流接入时查询一次，缺失字段保持管线默认值
type DeviceProfile struct {
	DeviceID         string
	RrWindowCount    *int
	LmsFilterOrder   *int
	LmsStepSize      *float64
	MotionThresholdG *float64
	QtcFormula       *string
	VlfNorm          *float64
	LfNorm           *float64
	HfNorm           *float64
	TotalNorm        *float64
}

// ProfileRepository 调参档案仓库
type ProfileRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewProfileRepository 创建调参档案仓库
// db 可为 nil（未配置数据库时全部使用默认参数）
func NewProfileRepository(db *sql.DB, logger *zap.Logger) *ProfileRepository {
	return &ProfileRepository{
		db:     db,
		logger: logger,
	}
}

// GetProfile 查询设备调参档案；无记录或未配置数据库时返回 (nil, nil)
func (r *ProfileRepository) GetProfile(deviceID string) (*DeviceProfile, error) {
	if r.db == nil {
		return nil, nil
	}

	query := `
		SELECT
			p.device_id,
			p.rr_window_count,
			p.lms_filter_order,
			p.lms_step_size,
			p.motion_threshold_g,
			p.qtc_formula,
			p.vlf_norm,
			p.lf_norm,
			p.hf_norm,
			p.total_norm
		FROM hrv_device_profiles p
		WHERE p.device_id = $1
		LIMIT 1
	`

	profile := &DeviceProfile{}
	err := r.db.QueryRow(query, deviceID).Scan(
		&profile.DeviceID,
		&profile.RrWindowCount,
		&profile.LmsFilterOrder,
		&profile.LmsStepSize,
		&profile.MotionThresholdG,
		&profile.QtcFormula,
		&profile.VlfNorm,
		&profile.LfNorm,
		&profile.HfNorm,
		&profile.TotalNorm,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query device profile: %w", err)
	}

	return profile, nil
}

// Apply 把档案覆盖到管线配置上（仅覆盖非空字段）
// 覆盖后的值仍需经 Normalize 钳制
func (p *DeviceProfile) Apply(cfg *config.PipelineConfig) {
	if p == nil {
		return
	}
	if p.RrWindowCount != nil {
		cfg.RrWindowCount = *p.RrWindowCount
	}
	if p.LmsFilterOrder != nil {
		cfg.LmsFilterOrder = *p.LmsFilterOrder
	}
	if p.LmsStepSize != nil {
		cfg.LmsStepSize = *p.LmsStepSize
	}
	if p.MotionThresholdG != nil {
		cfg.MotionThresholdG = *p.MotionThresholdG
	}
	if p.QtcFormula != nil {
		cfg.QtcFormula = *p.QtcFormula
	}
	if p.VlfNorm != nil {
		cfg.Bands.VLF = *p.VlfNorm
	}
	if p.LfNorm != nil {
		cfg.Bands.LF = *p.LfNorm
	}
	if p.HfNorm != nil {
		cfg.Bands.HF = *p.HfNorm
	}
	if p.TotalNorm != nil {
		cfg.Bands.Total = *p.TotalNorm
	}
}
