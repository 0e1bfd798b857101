package indices

import "math"

// 各生理输入到[0,100]"压力分"的分段线性映射。
// 数值越高代表压力越大；HRV好（SDNN/RMSSD/TP高）→ 压力分低。

// NormalizeLfHf LF/HF → 压力分
func NormalizeLfHf(x float64) float64 {
	switch {
	case x <= 0.5:
		return 10
	case x <= 1.0:
		return 20 + (x-0.5)/0.5*10
	case x <= 2.0:
		return 30 + (x-1.0)*20
	case x <= 3.0:
		return 50 + (x-2.0)*20
	default:
		return math.Min(100, 70+(x-3.0)*20)
	}
}

// NormalizeSdnn SDNN(ms) → 压力分
func NormalizeSdnn(x float64) float64 {
	switch {
	case x <= 20:
		return 100
	case x <= 50:
		return 80 - (x-20)/30*40
	case x <= 100:
		return 40 - (x-50)/50*30
	default:
		return 0
	}
}

// NormalizeRmssd RMSSD(ms) → 压力分
func NormalizeRmssd(x float64) float64 {
	switch {
	case x <= 10:
		return 100
	case x <= 30:
		return 80 - (x-10)/20*40
	case x <= 50:
		return 40 - (x-30)/20*25
	default:
		return 0
	}
}

// NormalizeTotalPower 总功率(ms²) → 压力分
// 2000以上指数衰减趋向0
func NormalizeTotalPower(x float64) float64 {
	switch {
	case x <= 500:
		return 90
	case x <= 1000:
		return 70 - (x-500)/500*20
	case x <= 2000:
		return 50 - (x-1000)/1000*20
	default:
		return 30 * math.Exp(-(x-2000)/2000)
	}
}

// Clamp100 钳制到[0,100]
func Clamp100(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
