package ecg

import (
	"math"
	"sort"
)

// RefractoryMs R峰之间的最小间隔（≈150 BPM）
const RefractoryMs = 400

// RefineWindowMs R峰精化时在未滤波信号上搜索的±窗口
const RefineWindowMs = 20

// SlopeSpan 斜率门控的累计跨度（样本数）
const SlopeSpan = 10

// DetectRPeaks 在平滑去基线后的窗口上检测R峰
//
// 候选条件：±5样本邻域内最大、超过动态阈值、且峰前SlopeSpan样本内
// 累计上升超过阈值/15 或峰后同跨度内累计下降低于−阈值/15（斜率型
// 门控）。已接受的峰之间保持400ms不应期；不应期内幅值高出前一峰
// 10%以上的候选会替换前一峰。
//
// 每个峰最后在未滤波信号 raw 的±20ms窗口内重定位到最大值处，
// 精化后再次强制不应期。返回窗口内的局部下标，升序。
func DetectRPeaks(smoothed, raw []float64, fs float64) []int {
	n := len(smoothed)
	if n < 11 {
		return nil
	}

	threshold := dynamicThreshold(smoothed)
	if threshold <= 0 {
		return nil
	}
	derivThr := threshold / 15

	minDist := int(math.Round(RefractoryMs / 1000.0 * fs))
	if minDist < 1 {
		minDist = 1
	}

	var peaks []int
	for i := 5; i < n-5; i++ {
		v := smoothed[i]
		if v <= threshold {
			continue
		}
		if !isNeighborhoodMax(smoothed, i, 5) {
			continue
		}
		lo := i - SlopeSpan
		if lo < 0 {
			lo = 0
		}
		hi := i + SlopeSpan
		if hi > n-1 {
			hi = n - 1
		}
		rise := smoothed[i] - smoothed[lo]
		fall := smoothed[hi] - smoothed[i]
		if rise <= derivThr && fall >= -derivThr {
			continue
		}

		if len(peaks) > 0 && i-peaks[len(peaks)-1] < minDist {
			// 不应期内：仅当幅值高出10%以上才替换前一峰
			if v > smoothed[peaks[len(peaks)-1]]*1.1 {
				peaks[len(peaks)-1] = i
			}
			continue
		}
		peaks = append(peaks, i)
	}

	// 精化：未滤波信号±20ms内的最大值
	refineW := int(math.Round(RefineWindowMs / 1000.0 * fs))
	refined := make([]int, 0, len(peaks))
	for _, p := range peaks {
		refined = append(refined, refineToRawMax(raw, p, refineW))
	}

	// 精化可能把相邻峰拉近，重新强制不应期（保留原始幅值更大者）
	return enforceRefractory(refined, raw, minDist)
}

// dynamicThreshold 90分位与其上方均值的50/50混合
func dynamicThreshold(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	p90 := sorted[int(float64(len(sorted))*0.9)]

	var sum float64
	var count int
	for _, v := range values {
		if v > p90 {
			sum += v
			count++
		}
	}
	meanAbove := p90
	if count > 0 {
		meanAbove = sum / float64(count)
	}
	return 0.5*p90 + 0.5*meanAbove
}

func isNeighborhoodMax(values []float64, i, radius int) bool {
	for k := i - radius; k <= i+radius; k++ {
		if k == i {
			continue
		}
		if values[k] > values[i] {
			return false
		}
	}
	return true
}

func refineToRawMax(raw []float64, p, w int) int {
	lo := p - w
	if lo < 0 {
		lo = 0
	}
	hi := p + w
	if hi > len(raw)-1 {
		hi = len(raw) - 1
	}
	best := p
	for k := lo; k <= hi; k++ {
		if raw[k] > raw[best] {
			best = k
		}
	}
	return best
}

func enforceRefractory(peaks []int, raw []float64, minDist int) []int {
	if len(peaks) < 2 {
		return peaks
	}
	out := peaks[:1]
	for _, p := range peaks[1:] {
		last := out[len(out)-1]
		if p == last {
			continue
		}
		if p-last < minDist {
			if raw[p] > raw[last] {
				out[len(out)-1] = p
			}
			continue
		}
		out = append(out, p)
	}
	return out
}
