package ecg

import "math"

// QSlopeThreshold Q点搜索中认定"陡峭下降段"的最小斜率幅值（计数/样本）
const QSlopeThreshold = 0.5

// FindQ 在R峰前搜索Q点，返回窗口局部下标；找不到返回-1
//
// 回看长度 = min(120ms, 估计RR的12%)。优先取斜率最陡的负斜率段
// （|斜率| > 0.5），并在其后10ms窗口内取最小值精化；
// 其次取二阶导数负→正的拐点；最后回退到R前≥40ms窗口内的最小值。
func FindQ(smoothed []float64, r int, fs, rrMs float64) int {
	lookbackS := math.Min(0.120, 0.12*rrMs/1000)
	lb := int(math.Round(lookbackS * fs))
	if lb < 2 {
		lb = 2
	}
	lo := r - lb
	if lo < 1 {
		lo = 1
	}
	if lo >= r {
		return -1
	}

	// 最陡负斜率段
	steepest := -1
	steepestSlope := 0.0
	for i := lo; i < r; i++ {
		slope := smoothed[i] - smoothed[i-1]
		if slope < -QSlopeThreshold && slope < steepestSlope {
			steepestSlope = slope
			steepest = i
		}
	}
	if steepest >= 0 {
		// 其后10ms窗口内的最小值
		w := int(math.Round(0.010 * fs))
		hi := steepest + w
		if hi >= r {
			hi = r - 1
		}
		best := steepest
		for i := steepest; i <= hi; i++ {
			if smoothed[i] < smoothed[best] {
				best = i
			}
		}
		return best
	}

	// 二阶导数负→正拐点（取最靠近R的一个）
	for i := r - 1; i >= lo+1; i-- {
		d2 := smoothed[i-1] - 2*smoothed[i] + smoothed[i+1]
		d2prev := smoothed[i-2] - 2*smoothed[i-1] + smoothed[i]
		if d2prev < 0 && d2 >= 0 {
			return i
		}
	}

	// 回退：R前≥40ms窗口内的最小值
	wlo := r - int(math.Round(0.040*fs))
	if wlo < 1 {
		wlo = 1
	}
	best := wlo
	for i := wlo; i < r; i++ {
		if smoothed[i] < smoothed[best] {
			best = i
		}
	}
	return best
}

// FindTPeak 在RR间期内搜索T波峰，返回窗口局部下标；找不到返回-1
//
// 搜索区间 [r+0.1·fs, nextR)（nextR<0 时到窗口末尾）。
// "第二局部极大"策略：取区间内最大的两个局部极大，T峰为其中下标
// 较小者。无局部极大时按与期望T位置（R后约300ms）的接近度加权取极大。
func FindTPeak(smoothed []float64, r, nextR int, fs float64) int {
	start := r + int(math.Round(0.1*fs))
	end := nextR
	if end < 0 || end > len(smoothed) {
		end = len(smoothed)
	}
	if start+1 >= end-1 {
		return -1
	}

	// 区间内局部极大
	var maxima []int
	for i := start + 1; i < end-1; i++ {
		if smoothed[i] > smoothed[i-1] && smoothed[i] >= smoothed[i+1] {
			maxima = append(maxima, i)
		}
	}

	switch {
	case len(maxima) >= 2:
		// 幅值最大的两个，取下标较小者
		first, second := -1, -1
		for _, m := range maxima {
			if first < 0 || smoothed[m] > smoothed[first] {
				second = first
				first = m
			} else if second < 0 || smoothed[m] > smoothed[second] {
				second = m
			}
		}
		if second >= 0 && second < first {
			return second
		}
		return first
	case len(maxima) == 1:
		return maxima[0]
	}

	// 回退：按接近期望T位置加权的极大
	expected := r + int(math.Round(0.3*fs))
	span := float64(end - start)
	best := -1
	bestScore := math.Inf(-1)
	for i := start; i < end; i++ {
		proximity := 1 - math.Abs(float64(i-expected))/span
		score := smoothed[i] * proximity
		if score > bestScore {
			bestScore = score
			best = i
		}
	}
	return best
}

// FindTEnd 梯形面积法定位T波终点，返回窗口局部下标；找不到返回-1
//
// 在T峰后约200ms内取|一阶导|最大点xm（T波最陡下降处），
// 在 [T峰+0.2·fs, T峰+0.4·fs] 内取|一阶导|最小点xr（等电位静息区），
// 对 [xm, xr] 内每个xi计算三角面积 A = ½·(s[xm]−s[xi])·(xr−xi)，
// T终点为面积最大处。回退：信号回落到T波幅值15%以内的首个点。
func FindTEnd(smoothed []float64, tpeak int, fs float64) int {
	n := len(smoothed)
	if tpeak < 0 || tpeak >= n-2 {
		return -1
	}

	// xm：T峰后~200ms内最陡下降点
	aHi := tpeak + int(math.Round(0.2*fs))
	if aHi > n-1 {
		aHi = n - 1
	}
	xm := -1
	maxDeriv := 0.0
	for i := tpeak + 1; i <= aHi; i++ {
		d := math.Abs(smoothed[i] - smoothed[i-1])
		if d > maxDeriv {
			maxDeriv = d
			xm = i
		}
	}

	// xr：[T峰+0.2fs, T峰+0.4fs] 内导数最平缓点
	bLo := tpeak + int(math.Round(0.2*fs))
	bHi := tpeak + int(math.Round(0.4*fs))
	if bHi > n-1 {
		bHi = n - 1
	}
	xr := -1
	minDeriv := math.Inf(1)
	for i := bLo; i <= bHi; i++ {
		if i < 1 {
			continue
		}
		d := math.Abs(smoothed[i] - smoothed[i-1])
		if d < minDeriv {
			minDeriv = d
			xr = i
		}
	}

	if xm >= 0 && xr > xm {
		best := -1
		bestArea := math.Inf(-1)
		for xi := xm; xi <= xr; xi++ {
			area := 0.5 * (smoothed[xm] - smoothed[xi]) * float64(xr-xi)
			if area > bestArea {
				bestArea = area
				best = xi
			}
		}
		if best > tpeak {
			return best
		}
	}

	// 回退：回落到T波幅值15%以内（信号已去基线，基线≈0）
	amp := smoothed[tpeak]
	if amp <= 0 {
		return -1
	}
	for i := tpeak + 1; i < n; i++ {
		if smoothed[i] <= 0.15*amp {
			return i
		}
	}
	return -1
}
