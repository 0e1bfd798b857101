// Package ingress 入口适配器（C1）
//
// 负责把外部事件换算到管线内部时间基：
// - ECG批量样本：按 t_k = t_last + k·(1/fs_ecg) 赋时间戳，符号扩展24位计数
// - 加速度帧：设备单位 × 比例因子换算为g，按 fs_acc 赋时间戳
// - R-R间期：范围校验 [300, 2000] ms
//
// 非法输入静默丢弃并计数，不中断任何流
package ingress

import (
	"go.uber.org/zap"
	"wisefido-hrv/internal/models"
)

// DefaultAccScale 加速度设备单位换算因子（device unit → g）
const DefaultAccScale = 0.01

// Stats 丢弃计数
type Stats struct {
	AccDropped int64
	RrDropped  int64
}

// Adapter 入口适配器
//
// 每条流各自维护"上一个已接受样本"的时间戳，批内顺序保持到达顺序。
// 各流时间戳严格非递减。
type Adapter struct {
	fsEcg    float64
	fsAcc    float64
	accScale float64

	lastEcgTs float64
	lastAccTs float64
	ecgCount  int64 // 已接受的ECG样本总数（0 表示首个样本从 t=0 开始）
	accCount  int64

	stats  Stats
	logger *zap.Logger
}

// NewAdapter 创建入口适配器
func NewAdapter(rates models.SamplingRates, logger *zap.Logger) *Adapter {
	return &Adapter{
		fsEcg:    rates.FsEcg,
		fsAcc:    rates.FsAcc,
		accScale: DefaultAccScale,
		logger:   logger,
	}
}

// SignExtend24 对24位原始计数做符号扩展
func SignExtend24(v int32) int32 {
	v &= 0xFFFFFF
	if v&0x800000 != 0 {
		v |= ^int32(0xFFFFFF)
	}
	return v
}

// AcceptEcgBatch 接收一批ECG原始计数，返回赋好时间戳的样本
//
// 空批量合法，返回 nil。批内样本顺序保持。
func (a *Adapter) AcceptEcgBatch(raw []int32) []models.EcgSample {
	if len(raw) == 0 {
		return nil
	}

	dt := 1.0 / a.fsEcg
	samples := make([]models.EcgSample, 0, len(raw))
	for _, v := range raw {
		var ts float64
		if a.ecgCount == 0 {
			ts = 0
		} else {
			ts = a.lastEcgTs + dt
		}
		samples = append(samples, models.EcgSample{
			Value:     SignExtend24(v),
			Timestamp: ts,
		})
		a.lastEcgTs = ts
		a.ecgCount++
	}
	return samples
}

// AcceptAccFrame 接收一帧三轴加速度，返回换算到g单位的样本
//
// 三个数组长度不一致视为畸形帧，整帧丢弃并计数。
func (a *Adapter) AcceptAccFrame(xs, ys, zs []int16) []models.AccSample {
	if len(xs) == 0 {
		return nil
	}
	if len(xs) != len(ys) || len(xs) != len(zs) {
		a.stats.AccDropped++
		a.logger.Warn("Malformed acc frame, length mismatch",
			zap.Int("x_len", len(xs)),
			zap.Int("y_len", len(ys)),
			zap.Int("z_len", len(zs)),
		)
		return nil
	}

	dt := 1.0 / a.fsAcc
	samples := make([]models.AccSample, 0, len(xs))
	for i := range xs {
		var ts float64
		if a.accCount == 0 {
			ts = 0
		} else {
			ts = a.lastAccTs + dt
		}
		samples = append(samples, models.AccSample{
			X:         float64(xs[i]) * a.accScale,
			Y:         float64(ys[i]) * a.accScale,
			Z:         float64(zs[i]) * a.accScale,
			Timestamp: ts,
		})
		a.lastAccTs = ts
		a.accCount++
	}
	return samples
}

// AcceptRr 校验R-R间期，合法返回true
//
// 范围外的值视为异位搏动/伪迹，丢弃并计数。
func (a *Adapter) AcceptRr(rrMs float64) bool {
	if !models.ValidRr(rrMs) {
		a.stats.RrDropped++
		a.logger.Debug("RR interval out of range, dropped",
			zap.Float64("rr_ms", rrMs),
		)
		return false
	}
	return true
}

// Stats 返回丢弃计数快照
func (a *Adapter) Stats() Stats {
	return a.stats
}
