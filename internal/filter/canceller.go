// Package filter 运动伪迹消除器（C2）
//
// 以加速度模长为噪声参考，对每个ECG样本跑一步自适应NLMS滤波。
// 找不到50ms内的加速度样本时直接透传。
package filter

import "math"

const (
	// DefaultConvergenceWindow 收敛判定的 |e| 滚动窗口长度
	DefaultConvergenceWindow = 50

	// 功率归一化与比值保护
	eps = 1e-8
)

// Canceller NLMS运动伪迹消除器
//
// 抽头缓冲保存最近L个加速度模长，权重向量同长，初始为零。
// 运动标志为真时步长×3（快速跟踪），静止时用标称步长（稳定优先）。
type Canceller struct {
	order           int
	mu              float64
	motionThreshold float64

	taps     []float64 // taps[0] 为最新模长
	weights  []float64
	tapCount int

	enabled bool
	motion  bool

	// 收敛探测：|e| 滚动窗口
	errWin   []float64
	errHead  int
	errCount int
}

// NewCanceller 创建消除器
func NewCanceller(order int, stepSize, motionThresholdG float64) *Canceller {
	if order < 1 {
		order = 1
	}
	return &Canceller{
		order:           order,
		mu:              stepSize,
		motionThreshold: motionThresholdG,
		taps:            make([]float64, order),
		weights:         make([]float64, order),
		enabled:         true,
		errWin:          make([]float64, DefaultConvergenceWindow),
	}
}

// Step 对单个ECG样本跑一步滤波
//
// magnitude / motionComponent 来自时间上最近的加速度样本。
// 返回清洁信号 e = x − n̂。
func (c *Canceller) Step(x, magnitude, motionComponent float64) float64 {
	if !c.enabled {
		return x
	}

	// 运动门控
	c.motion = motionComponent > c.motionThreshold

	// 抽头前移，最新模长进 taps[0]
	copy(c.taps[1:], c.taps[:c.order-1])
	c.taps[0] = magnitude
	if c.tapCount < c.order {
		c.tapCount++
	}

	// 噪声估计 n̂ = Σ wᵢ·mᵢ
	var nhat float64
	var power float64
	for i := 0; i < c.order; i++ {
		nhat += c.weights[i] * c.taps[i]
		power += c.taps[i] * c.taps[i]
	}

	e := x - nhat

	// 高运动时三倍步长，归一化解除对输入功率的依赖
	step := c.mu
	if c.motion {
		step *= 3
	}
	step /= power + eps

	for i := 0; i < c.order; i++ {
		c.weights[i] += step * e * c.taps[i]
	}

	c.recordError(math.Abs(e))
	return e
}

// Passthrough 无参考样本时透传（不更新滤波状态）
func (c *Canceller) Passthrough(x float64) float64 {
	return x
}

// Motion 当前运动标志
func (c *Canceller) Motion() bool {
	return c.motion
}

// Converged 滚动窗口内 |e| 方差低于均值10%时视为已收敛
// 仅供观测，不做门控
func (c *Canceller) Converged() bool {
	if c.errCount < len(c.errWin) {
		return false
	}

	var mean float64
	for _, v := range c.errWin {
		mean += v
	}
	mean /= float64(len(c.errWin))
	if mean <= eps {
		return true
	}

	var variance float64
	for _, v := range c.errWin {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(c.errWin))

	return variance < 0.1*mean
}

// Enabled 滤波是否启用
func (c *Canceller) Enabled() bool {
	return c.enabled
}

// SetEnabled 运行时旁路开关
// 重新启用时抽头与权重归零
func (c *Canceller) SetEnabled(enabled bool) {
	if enabled && !c.enabled {
		c.Reset()
	}
	c.enabled = enabled
}

// Reset 清空滤波状态
func (c *Canceller) Reset() {
	for i := range c.taps {
		c.taps[i] = 0
		c.weights[i] = 0
	}
	c.tapCount = 0
	c.motion = false
	c.errHead = 0
	c.errCount = 0
}

func (c *Canceller) recordError(absErr float64) {
	c.errWin[c.errHead] = absErr
	c.errHead = (c.errHead + 1) % len(c.errWin)
	if c.errCount < len(c.errWin) {
		c.errCount++
	}
}
