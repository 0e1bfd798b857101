// Package hrv HRV引擎（C4）
//
// 维护有界R-R滑动窗口，在每个被接受的RR上重算时域与频域指标。
// 时域在前（开销小），频域在后。
package hrv

// Metrics 一次重算得到的全量HRV指标
type Metrics struct {
	Count    int     // 当前窗口间期数
	MeanRrMs float64 // 窗口均值（ms）
	HrBpm    float64 // 平均心率（bpm）

	// 时域（ms / %）
	Sdnn  float64
	Rmssd float64
	Pnn50 float64
	MxDMn float64
	Amo50 float64
	Cv    float64

	// 频域（ms²）
	Vlf        float64
	Lf         float64
	Hf         float64
	TotalPower float64
	LfHf       float64
}

// Engine HRV引擎
type Engine struct {
	window *Window
	norms  BandNorms
}

// NewEngine 创建HRV引擎
func NewEngine(windowCount int, norms BandNorms) *Engine {
	return &Engine{
		window: NewWindow(windowCount),
		norms:  norms,
	}
}

// Push 接受一个RR间期并重算全部指标
// 调用方保证间期已通过[300,2000]ms范围校验
func (e *Engine) Push(rrMs float64) Metrics {
	e.window.Push(rrMs)
	return e.Compute()
}

// Compute 在当前窗口上计算全部指标
func (e *Engine) Compute() Metrics {
	w := e.window.Values()

	m := Metrics{
		Count:    len(w),
		MeanRrMs: e.window.Mean(),
	}
	if m.MeanRrMs > 0 {
		m.HrBpm = 60000 / m.MeanRrMs
	}

	// 时域
	m.Sdnn = SDNN(w)
	m.Rmssd = RMSSD(w)
	m.Pnn50 = PNN50(w)
	m.MxDMn = MxDMn(w)
	m.Amo50 = AMo50(w)
	m.Cv = CV(w)

	// 频域：总功率为三段之和
	m.Vlf = BandPower(w, VlfLoHz, VlfHiHz, e.norms.VLF)
	m.Lf = BandPower(w, LfLoHz, LfHiHz, e.norms.LF)
	m.Hf = BandPower(w, HfLoHz, HfHiHz, e.norms.HF)
	m.TotalPower = m.Vlf + m.Lf + m.Hf
	m.LfHf = LfHfRatio(m.Lf, m.Hf)

	return m
}

// Len 当前窗口间期数
func (e *Engine) Len() int {
	return e.window.Len()
}

// Reset 清空窗口
func (e *Engine) Reset() {
	e.window.Clear()
}
