package hrv

import "math"

// 频段定义（Hz）
const (
	VlfLoHz = 0.003
	VlfHiHz = 0.04
	LfLoHz  = 0.04
	LfHiHz  = 0.15
	HfLoHz  = 0.15
	HfHiHz  = 0.4
)

// MaxLag 自协方差的最大滞后
const MaxLag = 20

const epsPower = 1e-9

// BandNorms 各频段的归一化常数（源数据各版本不一致，做成配置）
// Total 仅为配置表完整性而保留：总功率按三段之和定义，不单独估计
type BandNorms struct {
	VLF   float64
	LF    float64
	HF    float64
	Total float64
}

// DefaultBandNorms 归一化常数默认值
func DefaultBandNorms() BandNorms {
	return BandNorms{VLF: 1, LF: 4.5, HF: 0.87, Total: 8}
}

// BandPower 基于自协方差的频段功率估计（ms²）
//
// 流程：去均值归一化 → 有偏自协方差（滞后0..min(|W|−1,20)）→
// Hamming窗 → 在 [fLo, fHi] 频格上累加非负周期图值 → 乘μ²换算回
// ms²，再除以频段归一化常数。|W|<5 返回0。
func BandPower(w []float64, fLo, fHi, norm float64) float64 {
	n := len(w)
	if n < 5 {
		return 0
	}
	if norm <= 0 {
		norm = 1
	}

	mu := meanOf(w)
	if mu <= epsPower {
		return 0
	}

	// 去趋势归一化序列
	y := make([]float64, n)
	for i, v := range w {
		y[i] = (v - mu) / mu
	}

	kMax := n - 1
	if kMax > MaxLag {
		kMax = MaxLag
	}

	// 有偏自协方差 + Hamming窗
	r := make([]float64, kMax+1)
	for k := 0; k <= kMax; k++ {
		var sum float64
		for i := 0; i+k < n; i++ {
			sum += y[i] * y[i+k]
		}
		r[k] = sum / float64(n-k)
		r[k] *= 0.54 - 0.46*math.Cos(2*math.Pi*float64(k)/float64(kMax))
	}

	// 周期图近似：频格步长 1/(2·K_max)
	step := 1.0 / float64(2*kMax)
	muS := mu / 1000 // 平均采样间隔（秒）
	var power float64
	for f := fLo; f <= fHi+1e-12; f += step {
		s := r[0]
		for k := 1; k <= kMax; k++ {
			s += 2 * r[k] * math.Cos(2*math.Pi*f*float64(k)*muS)
		}
		if s > 0 {
			power += s
		}
	}

	return power * mu * mu / norm
}

// LfHfRatio LF/HF纯比值；HF≤ε 返回0
func LfHfRatio(lf, hf float64) float64 {
	if hf <= epsPower {
		return 0
	}
	return lf / hf
}
