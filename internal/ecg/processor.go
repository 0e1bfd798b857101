// Package ecg ECG调理与基准点检测（C3）
//
// 在运动滤波后的ECG尾部窗口上工作：滑动平均平滑、去基线、
// R峰检测与精化、Q点搜索、T峰/T终点定位、QT间期生成。
package ecg

import (
	"math"

	"go.uber.org/zap"
	"wisefido-hrv/internal/models"
)

// DefaultRrEstimateMs 峰数不足时的RR估计缺省值
const DefaultRrEstimateMs = 800

// Result 单次窗口处理的输出
type Result struct {
	// Conditioned 平滑去基线后的窗口信号（显示用）
	Conditioned []float64
	// StartIndex 窗口首样本的全局序号
	StartIndex int64

	// WindowFiducials 当前窗口的完整基准点集（显示标注用，每tick重算）
	WindowFiducials []models.FiducialPoint
	// NewFiducials 本次新产生的基准点（输出流用，跨窗口去重后）
	NewFiducials []models.FiducialPoint
	// QtEvents 本次新产生的QT事件（每个R峰至多一次）
	QtEvents []models.QtEvent
	// RrIntervals 由新R峰推出的RR间期（ms），作为传感器RR不可用时的后备
	RrIntervals []float64

	// AvgRrMs 窗口内R峰的平均RR估计（用于缩放Q/T搜索窗口）
	AvgRrMs float64
}

// Processor 窗口处理器
//
// 跨窗口状态：已生成QT的R峰全局序号集合（去重），
// 以及最近一次向输出流发出的R峰序号（重叠窗口的R去重与后备RR）。
type Processor struct {
	fs         float64
	qtcFormula string

	processed    map[int64]struct{}
	lastStreamR  int64
	hasStreamR   bool
	refractorySm int

	logger *zap.Logger
}

// NewProcessor 创建窗口处理器
// qtcFormula: "bazett" 或 "fridericia"
func NewProcessor(fs float64, qtcFormula string, logger *zap.Logger) *Processor {
	return &Processor{
		fs:           fs,
		qtcFormula:   qtcFormula,
		processed:    make(map[int64]struct{}),
		refractorySm: int(math.Round(RefractoryMs / 1000.0 * fs)),
		logger:       logger,
	}
}

// Process 处理一个尾部窗口
//
// filtered 为运动滤波后的信号（平滑、去基线、检测在其上进行）；
// unfiltered 为未滤波信号（R峰精化在其上进行），两者等长且对齐。
func (p *Processor) Process(filtered, unfiltered []float64, startIndex int64) Result {
	res := Result{StartIndex: startIndex}
	if len(filtered) == 0 || len(filtered) != len(unfiltered) {
		return res
	}

	smoothed := MovingAverage(filtered, SmoothingWindow(p.fs))
	conditioned := RemoveBaseline(smoothed, p.fs)
	res.Conditioned = conditioned

	peaks := DetectRPeaks(conditioned, unfiltered, p.fs)
	res.AvgRrMs = p.estimateRr(peaks)

	for k, peak := range peaks {
		g := startIndex + int64(peak)

		rPoint := models.FiducialPoint{
			Kind:        models.FiducialR,
			GlobalIndex: g,
			Timestamp:   float64(g) / p.fs,
			Value:       conditioned[peak],
		}
		res.WindowFiducials = append(res.WindowFiducials, rPoint)

		// 跨窗口R去重：与上一个已发R峰保持不应期距离
		isNew := !p.hasStreamR || g >= p.lastStreamR+int64(p.refractorySm)
		if isNew {
			if p.hasStreamR {
				rrMs := float64(g-p.lastStreamR) / p.fs * 1000
				res.RrIntervals = append(res.RrIntervals, rrMs)
			}
			p.lastStreamR = g
			p.hasStreamR = true
			res.NewFiducials = append(res.NewFiducials, rPoint)
		}

		nextR := -1
		if k+1 < len(peaks) {
			nextR = peaks[k+1]
		}
		p.locateQt(conditioned, peak, nextR, g, startIndex, isNew, res.AvgRrMs, &res)
	}

	return res
}

// locateQt 对单个R峰定位Q/T并生成QT事件
func (p *Processor) locateQt(conditioned []float64, peak, nextR int, g, startIndex int64, isNew bool, avgRrMs float64, res *Result) {
	q := FindQ(conditioned, peak, p.fs, avgRrMs)
	if q < 0 {
		return
	}
	tp := FindTPeak(conditioned, peak, nextR, p.fs)
	if tp < 0 {
		return
	}
	te := FindTEnd(conditioned, tp, p.fs)
	if te < 0 {
		return
	}

	// 序合法性与QT范围
	if !(q < tp && tp < te) {
		return
	}
	qtMs := float64(te-q) / p.fs * 1000
	if qtMs < models.QtMinMs || qtMs > models.QtMaxMs {
		return
	}

	points := []models.FiducialPoint{
		{Kind: models.FiducialQ, GlobalIndex: startIndex + int64(q), Timestamp: float64(startIndex+int64(q)) / p.fs, Value: conditioned[q]},
		{Kind: models.FiducialTpeak, GlobalIndex: startIndex + int64(tp), Timestamp: float64(startIndex+int64(tp)) / p.fs, Value: conditioned[tp]},
		{Kind: models.FiducialTend, GlobalIndex: startIndex + int64(te), Timestamp: float64(startIndex+int64(te)) / p.fs, Value: conditioned[te]},
	}
	res.WindowFiducials = append(res.WindowFiducials, points...)

	// 每个R峰至多发出一次QT
	if _, done := p.processed[g]; done {
		return
	}
	p.processed[g] = struct{}{}

	if isNew {
		res.NewFiducials = append(res.NewFiducials, points...)
	}

	res.QtEvents = append(res.QtEvents, models.QtEvent{
		QIndex:     startIndex + int64(q),
		TpeakIndex: startIndex + int64(tp),
		TendIndex:  startIndex + int64(te),
		RIndex:     g,
		QtMs:       qtMs,
		QtcMs:      CorrectQt(qtMs, avgRrMs, p.qtcFormula),
		RTime:      float64(g) / p.fs,
		QTime:      float64(startIndex+int64(q)) / p.fs,
		TendTime:   float64(startIndex+int64(te)) / p.fs,
	})
}

// estimateRr 窗口内峰间平均RR（ms）；峰数不足时用缺省值
func (p *Processor) estimateRr(peaks []int) float64 {
	if len(peaks) < 2 {
		return DefaultRrEstimateMs
	}
	var sum float64
	for i := 1; i < len(peaks); i++ {
		sum += float64(peaks[i] - peaks[i-1])
	}
	return sum / float64(len(peaks)-1) / p.fs * 1000
}

// PruneBefore 清理已掉出缓冲的"已处理"R峰序号
func (p *Processor) PruneBefore(firstIndex int64) {
	for g := range p.processed {
		if g < firstIndex {
			delete(p.processed, g)
		}
	}
}

// Reset 清空跨窗口状态
func (p *Processor) Reset() {
	p.processed = make(map[int64]struct{})
	p.hasStreamR = false
	p.lastStreamR = 0
}

// CorrectQt 心率校正QT
// bazett: QT/√RR；fridericia: QT/∛RR（RR单位为秒）
func CorrectQt(qtMs, rrMs float64, formula string) float64 {
	rrS := rrMs / 1000
	if rrS <= 0 {
		return qtMs
	}
	switch formula {
	case "bazett":
		return qtMs / math.Sqrt(rrS)
	default: // fridericia
		return qtMs / math.Cbrt(rrS)
	}
}
