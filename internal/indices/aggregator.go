// Package indices 综合指数聚合器（C5）
//
// 把HRV指标映射为压力/能量/健康综合指数与自主神经平衡分。
// 输入是每次RR更新后算好的纯数值（无回边），输出带自适应指数平滑。
package indices

import (
	"math"

	"go.uber.org/zap"
	"wisefido-hrv/internal/models"
)

// MinWindowCount 指数发布所需的最小RR窗口长度
const MinWindowCount = 5

// HistoryCap 每个指数保留的历史样本上限
const HistoryCap = 20

const epsRatio = 1e-9

// Inputs 聚合器的输入（每次RR更新后的HRV指标值）
type Inputs struct {
	LfHf       float64
	Sdnn       float64
	Rmssd      float64
	TotalPower float64
	Count      int // 当前RR窗口长度
}

// IndexSet 一次聚合的输出
type IndexSet struct {
	Stress  float64
	Energy  float64
	Health  float64
	Sns     float64
	Psns    float64
	Balance float64 // SNS/PSNS 守护比值

	Vulnerability models.VulnerabilityLabel
}

// Aggregator 综合指数聚合器
//
// 每个指数各自维护平滑历史；窗口长度不足时保持上次输出
// （冷启动为零值）。所有指数发布前钳制到[0,100]。
type Aggregator struct {
	stress *smoother
	energy *smoother
	health *smoother

	last IndexSet

	logger *zap.Logger
}

// NewAggregator 创建聚合器
func NewAggregator(logger *zap.Logger) *Aggregator {
	return &Aggregator{
		stress: newSmoother(),
		energy: newSmoother(),
		health: newSmoother(),
		logger: logger,
	}
}

// Update 按当前HRV指标重算全部指数
// in.Count < 5 时不重算，返回上次输出
func (a *Aggregator) Update(in Inputs) IndexSet {
	if in.Count < MinWindowCount {
		return a.last
	}

	nL := NormalizeLfHf(in.LfHf)
	nS := NormalizeSdnn(in.Sdnn)
	nR := NormalizeRmssd(in.Rmssd)
	nT := NormalizeTotalPower(in.TotalPower)

	sns := 0.5*nL + 0.25*nS + 0.25*nR
	psns := 0.4*(100-nL) + 0.2*(100-nS) + 0.2*(100-nR) + 0.2*(100-nT)

	stressRaw := Clamp100(0.7*sns + 0.2*(100-psns) + 0.1*math.Abs(sns-psns)/25*10)
	energyRaw := Clamp100(0.5*psns + 0.2*(100-nS) + 0.2*(100-nR) + 0.1*(100-nT))

	stress := a.stress.smooth(stressRaw)
	energy := a.energy.smooth(energyRaw)

	// 健康指数：免疫/恢复/平衡子分 + 压力与能量修正
	immunity := 100 - nS
	recovery := 0.5*(100-nR) + 0.5*energy
	balanceScore := Clamp100(100 - math.Abs(sns-psns))
	healthRaw := Clamp100(0.3*immunity + 0.3*recovery + 0.2*balanceScore +
		0.1*(100-stress) + 0.1*energy)
	health := a.health.smooth(healthRaw)

	out := IndexSet{
		Stress:        Clamp100(stress),
		Energy:        Clamp100(energy),
		Health:        Clamp100(health),
		Sns:           Clamp100(sns),
		Psns:          Clamp100(psns),
		Vulnerability: models.VulnerabilityFromHealth(health),
	}
	if psns > epsRatio {
		out.Balance = sns / psns
	}

	a.last = out
	return out
}

// Last 上次输出（冷启动为零值）
func (a *Aggregator) Last() IndexSet {
	return a.last
}

// Reset 清空平滑历史与上次输出
func (a *Aggregator) Reset() {
	a.stress = newSmoother()
	a.energy = newSmoother()
	a.health = newSmoother()
	a.last = IndexSet{}
}

// smoother 自适应指数平滑
//
// α = clamp(0.5 + Δ/200, 0.5, 0.8)，Δ为新旧差的绝对值：
// 跳变大时跟得快，跳变小时压得稳。首次输出直接透传。
type smoother struct {
	history []float64
	prev    float64
	hasPrev bool
}

func newSmoother() *smoother {
	return &smoother{history: make([]float64, 0, HistoryCap)}
}

func (s *smoother) smooth(raw float64) float64 {
	var out float64
	if !s.hasPrev {
		out = raw
	} else {
		delta := math.Abs(raw - s.prev)
		alpha := 0.5 + delta/200
		if alpha > 0.8 {
			alpha = 0.8
		}
		out = alpha*raw + (1-alpha)*s.prev
	}

	s.prev = out
	s.hasPrev = true

	if len(s.history) >= HistoryCap {
		copy(s.history, s.history[1:])
		s.history = s.history[:len(s.history)-1]
	}
	s.history = append(s.history, out)
	return out
}
