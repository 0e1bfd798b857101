package repository

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"wisefido-hrv/internal/config"
)

func profileColumns() []string {
	return []string{
		"device_id", "rr_window_count", "lms_filter_order", "lms_step_size",
		"motion_threshold_g", "qtc_formula", "vlf_norm", "lf_norm", "hf_norm", "total_norm",
	}
}

func TestGetProfile_Found(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewProfileRepository(db, zap.NewNop())

	mock.ExpectQuery(`SELECT\s+p.device_id`).
		WithArgs("device-1").
		WillReturnRows(sqlmock.NewRows(profileColumns()).AddRow(
			"device-1", 120, 20, 0.01, 0.2, "bazett", 1.0, 4.5, 9.0, 8.0,
		))

	profile, err := repo.GetProfile("device-1")
	require.NoError(t, err)
	require.NotNil(t, profile)

	assert.Equal(t, "device-1", profile.DeviceID)
	require.NotNil(t, profile.RrWindowCount)
	assert.Equal(t, 120, *profile.RrWindowCount)
	require.NotNil(t, profile.QtcFormula)
	assert.Equal(t, "bazett", *profile.QtcFormula)
	require.NotNil(t, profile.HfNorm)
	assert.Equal(t, 9.0, *profile.HfNorm)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetProfile_NotFoundReturnsNil(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewProfileRepository(db, zap.NewNop())

	mock.ExpectQuery(`SELECT\s+p.device_id`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(profileColumns()))

	profile, err := repo.GetProfile("missing")
	assert.NoError(t, err)
	assert.Nil(t, profile)
}

func TestGetProfile_NilDB(t *testing.T) {
	repo := NewProfileRepository(nil, zap.NewNop())

	profile, err := repo.GetProfile("device-1")
	assert.NoError(t, err)
	assert.Nil(t, profile)
}

func TestGetProfile_PartialRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewProfileRepository(db, zap.NewNop())

	// 只设置了窗口大小，其余为NULL
	mock.ExpectQuery(`SELECT\s+p.device_id`).
		WithArgs("device-2").
		WillReturnRows(sqlmock.NewRows(profileColumns()).AddRow(
			"device-2", 30, nil, nil, nil, nil, nil, nil, nil, nil,
		))

	profile, err := repo.GetProfile("device-2")
	require.NoError(t, err)
	require.NotNil(t, profile)

	assert.NotNil(t, profile.RrWindowCount)
	assert.Nil(t, profile.LmsStepSize)
	assert.Nil(t, profile.QtcFormula)
}

func TestProfileApply(t *testing.T) {
	cfg := config.DefaultPipelineConfig()

	window := 120
	step := 0.02
	formula := "bazett"
	hf := 9.0
	profile := &DeviceProfile{
		RrWindowCount: &window,
		LmsStepSize:   &step,
		QtcFormula:    &formula,
		HfNorm:        &hf,
	}
	profile.Apply(&cfg)

	assert.Equal(t, 120, cfg.RrWindowCount)
	assert.Equal(t, 0.02, cfg.LmsStepSize)
	assert.Equal(t, "bazett", cfg.QtcFormula)
	assert.Equal(t, 9.0, cfg.Bands.HF)
	// 未设置的字段保持默认
	assert.Equal(t, 15, cfg.LmsFilterOrder)
	assert.Equal(t, 4.5, cfg.Bands.LF)
}

func TestProfileApply_NilProfile(t *testing.T) {
	cfg := config.DefaultPipelineConfig()
	var profile *DeviceProfile
	profile.Apply(&cfg)
	assert.Equal(t, config.DefaultPipelineConfig(), cfg)
}
