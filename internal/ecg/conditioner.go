package ecg

import (
	"math"
	"sort"
)

// SmoothingWindow 滑动平均窗口长度（约10ms，下限3个样本）
func SmoothingWindow(fs float64) int {
	w := int(math.Round(0.01 * fs))
	if w < 3 {
		w = 3
	}
	return w
}

// MovingAverage 因果滑动平均
//
// out[i] 为最近 win 个样本（含自身）的均值；窗口未满时用已有样本。
// 调用方把上一批的尾部样本拼在 values 前部即可获得批间连续性。
func MovingAverage(values []float64, win int) []float64 {
	if win < 1 {
		win = 1
	}
	out := make([]float64, len(values))
	var sum float64
	for i, v := range values {
		sum += v
		if i >= win {
			sum -= values[i-win]
		}
		n := i + 1
		if n > win {
			n = win
		}
		out[i] = sum / float64(n)
	}
	return out
}

// RemoveBaseline 去基线漂移
//
// 把窗口切成半秒长、50%重叠的段；每段取最低20%样本的均值作为该段
// 基线水平；段中心之间线性插值，窗口两端平直延伸；逐样本相减。
func RemoveBaseline(values []float64, fs float64) []float64 {
	n := len(values)
	if n == 0 {
		return nil
	}

	segLen := int(math.Round(0.5 * fs))
	if segLen < 4 {
		segLen = 4
	}
	step := segLen / 2

	// 段基线水平与段中心
	var centers []int
	var levels []float64
	for start := 0; start < n; start += step {
		end := start + segLen
		if end > n {
			end = n
		}
		if end-start < 2 {
			break
		}
		levels = append(levels, lowerQuantileMean(values[start:end], 0.2))
		centers = append(centers, (start+end)/2)
		if end == n {
			break
		}
	}

	out := make([]float64, n)
	if len(centers) == 0 {
		level := lowerQuantileMean(values, 0.2)
		for i, v := range values {
			out[i] = v - level
		}
		return out
	}

	for i, v := range values {
		out[i] = v - interpBaseline(i, centers, levels)
	}
	return out
}

// lowerQuantileMean 最低 frac 比例样本的均值（至少1个）
func lowerQuantileMean(seg []float64, frac float64) float64 {
	sorted := make([]float64, len(seg))
	copy(sorted, seg)
	sort.Float64s(sorted)

	k := int(float64(len(sorted)) * frac)
	if k < 1 {
		k = 1
	}
	var sum float64
	for _, v := range sorted[:k] {
		sum += v
	}
	return sum / float64(k)
}

// interpBaseline 段中心之间线性插值，两端平直延伸
func interpBaseline(i int, centers []int, levels []float64) float64 {
	if i <= centers[0] {
		return levels[0]
	}
	last := len(centers) - 1
	if i >= centers[last] {
		return levels[last]
	}
	// centers 单调递增，线性扫描段数很少
	for k := 1; k <= last; k++ {
		if i <= centers[k] {
			span := float64(centers[k] - centers[k-1])
			t := float64(i-centers[k-1]) / span
			return levels[k-1] + t*(levels[k]-levels[k-1])
		}
	}
	return levels[last]
}
