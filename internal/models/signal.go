package models

import "math"

// SamplingRates 各流的采样率（流接入时提供，之后不可变）
type SamplingRates struct {
	FsEcg float64 `json:"fs_ecg"` // ECG采样率，典型值 130 Hz
	FsAcc float64 `json:"fs_acc"` // 加速度采样率，典型值 200 Hz
}

// EcgSample 单个ECG样本
// Value 为符号扩展后的24位原始计数，Timestamp 为会话起点以来的秒数
type EcgSample struct {
	Value     int32   `json:"value"`
	Timestamp float64 `json:"timestamp"`
}

// AccSample 三轴加速度样本（已换算为g单位）
type AccSample struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Z         float64 `json:"z"`
	Timestamp float64 `json:"timestamp"`
}

// Magnitude 加速度模长 √(x²+y²+z²)
func (a *AccSample) Magnitude() float64 {
	return math.Sqrt(a.X*a.X + a.Y*a.Y + a.Z*a.Z)
}

// MotionComponent 运动分量 |模长 − 1.0|（去除重力基线）
func (a *AccSample) MotionComponent() float64 {
	return math.Abs(a.Magnitude() - 1.0)
}

// RR间期的合法范围（ms），范围外视为异位搏动或伪迹
const (
	RrMinMs = 300
	RrMaxMs = 2000
)

// ValidRr 判断RR间期是否在合法范围内
func ValidRr(ms float64) bool {
	return ms >= RrMinMs && ms <= RrMaxMs
}

// FiducialKind 基准点类型
type FiducialKind string

const (
	FiducialR     FiducialKind = "R"
	FiducialQ     FiducialKind = "Q"
	FiducialTpeak FiducialKind = "Tpeak"
	FiducialTend  FiducialKind = "Tend"
)

// FiducialPoint ECG基准点
type FiducialPoint struct {
	Kind        FiducialKind `json:"kind"`
	GlobalIndex int64        `json:"global_index"` // ECG缓冲区全局样本序号
	Timestamp   float64      `json:"timestamp"`    // 秒
	Value       float64      `json:"value"`        // 该序号处的样本值
}

// QT事件的合法范围（ms）
const (
	QtMinMs = 230
	QtMaxMs = 660
)

// QtEvent QT间期事件
// 仅当 Q < Tpeak < Tend 且 QT ∈ [230, 660] ms 时生成
type QtEvent struct {
	QIndex     int64   `json:"q_index"`
	TpeakIndex int64   `json:"tpeak_index"`
	TendIndex  int64   `json:"tend_index"`
	RIndex     int64   `json:"r_index"`
	QtMs       float64 `json:"qt_ms"`
	QtcMs      float64 `json:"qtc_ms"` // 心率校正后的QT
	RTime      float64 `json:"r_time"`
	QTime      float64 `json:"q_time"`
	TendTime   float64 `json:"tend_time"`
}

// DisplayPoint 显示流中的单点（滤波+去基线后的样本）
type DisplayPoint struct {
	Timestamp float64 `json:"timestamp"`
	Value     float64 `json:"value"`
}

// MetricValue 单个指标值（带单位与精度声明）
type MetricValue struct {
	Name      string  `json:"name"`
	Value     float64 `json:"value"`
	Unit      string  `json:"unit"`
	Precision int     `json:"precision"`
}

// VulnerabilityLabel 健康脆弱度标签（仅由健康指数的区间边界决定）
type VulnerabilityLabel string

const (
	VulnerabilityOptimal  VulnerabilityLabel = "Optimal"
	VulnerabilitySlight   VulnerabilityLabel = "Slight"
	VulnerabilityModerate VulnerabilityLabel = "Moderate"
	VulnerabilityHigh     VulnerabilityLabel = "High"
	VulnerabilitySevere   VulnerabilityLabel = "Severe"
)

// VulnerabilityFromHealth 健康指数 → 脆弱度标签
// ≥95 Optimal; ≥80 Slight; ≥60 Moderate; ≥40 High; 其余 Severe
func VulnerabilityFromHealth(health float64) VulnerabilityLabel {
	switch {
	case health >= 95:
		return VulnerabilityOptimal
	case health >= 80:
		return VulnerabilitySlight
	case health >= 60:
		return VulnerabilityModerate
	case health >= 40:
		return VulnerabilityHigh
	default:
		return VulnerabilitySevere
	}
}
