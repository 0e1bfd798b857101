package hrv

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeDomain_InsufficientSamples(t *testing.T) {
	// |W|<2 时全部时域指标为0
	for _, w := range [][]float64{nil, {}, {800}} {
		assert.Equal(t, 0.0, SDNN(w))
		assert.Equal(t, 0.0, RMSSD(w))
		assert.Equal(t, 0.0, PNN50(w))
		assert.Equal(t, 0.0, MxDMn(w))
		assert.Equal(t, 0.0, AMo50(w))
		assert.Equal(t, 0.0, CV(w))
	}

	// CV类指标需要≥5个样本
	assert.Equal(t, 0.0, CV([]float64{800, 900, 800, 900}))
}

func TestTimeDomain_ConstantSeries(t *testing.T) {
	// 恒定序列：离散度指标全为0，AMo50为100
	w := make([]float64, 30)
	for i := range w {
		w[i] = 1000
	}

	assert.Equal(t, 0.0, SDNN(w))
	assert.Equal(t, 0.0, RMSSD(w))
	assert.Equal(t, 0.0, PNN50(w))
	assert.Equal(t, 0.0, MxDMn(w))
	assert.Equal(t, 0.0, CV(w))
	assert.Equal(t, 100.0, AMo50(w))
}

func TestTimeDomain_AlternatingSeries(t *testing.T) {
	// 900/1100交替，20个间期
	w := make([]float64, 20)
	for i := range w {
		if i%2 == 0 {
			w[i] = 900
		} else {
			w[i] = 1100
		}
	}

	assert.InDelta(t, 100, SDNN(w), 1e-9)
	assert.InDelta(t, 200, RMSSD(w), 1e-9)
	assert.Equal(t, 100.0, PNN50(w))
	assert.Equal(t, 200.0, MxDMn(w))
	assert.InDelta(t, 10, CV(w), 1e-9)
	// 均值1000，±50内没有间期
	assert.Equal(t, 0.0, AMo50(w))
}

func TestBandPower_InsufficientSamples(t *testing.T) {
	assert.Equal(t, 0.0, BandPower([]float64{800, 900, 1000, 900}, LfLoHz, LfHiHz, 1))
}

func TestBandPower_ConstantSeriesZero(t *testing.T) {
	w := make([]float64, 30)
	for i := range w {
		w[i] = 1000
	}
	assert.Equal(t, 0.0, BandPower(w, VlfLoHz, VlfHiHz, 1))
	assert.Equal(t, 0.0, BandPower(w, LfLoHz, LfHiHz, 1))
	assert.Equal(t, 0.0, BandPower(w, HfLoHz, HfHiHz, 1))
}

func TestBandPower_NonNegative(t *testing.T) {
	// 任意序列下各频段功率非负
	w := []float64{820, 910, 780, 1040, 960, 870, 1010, 890, 940, 830, 990, 860}
	norms := DefaultBandNorms()
	assert.GreaterOrEqual(t, BandPower(w, VlfLoHz, VlfHiHz, norms.VLF), 0.0)
	assert.GreaterOrEqual(t, BandPower(w, LfLoHz, LfHiHz, norms.LF), 0.0)
	assert.GreaterOrEqual(t, BandPower(w, HfLoHz, HfHiHz, norms.HF), 0.0)
}

func TestBandPower_ModulatedSeriesHasPower(t *testing.T) {
	// 周期性调制的RR序列应产生正的频段功率
	w := make([]float64, 60)
	for i := range w {
		w[i] = 1000 + 100*math.Sin(2*math.Pi*float64(i)/6)
	}
	total := BandPower(w, VlfLoHz, HfHiHz, 1)
	assert.Greater(t, total, 0.0)
}

func TestLfHfRatio_Guard(t *testing.T) {
	assert.Equal(t, 0.0, LfHfRatio(100, 0))
	assert.Equal(t, 0.0, LfHfRatio(100, -5))
	assert.InDelta(t, 2.0, LfHfRatio(100, 50), 1e-12)
}

func TestEngine_Scenario_ConstantRr(t *testing.T) {
	// 恒定RR=1000ms×30：HR 60bpm，离散度与频域全0
	e := NewEngine(60, DefaultBandNorms())

	var m Metrics
	for i := 0; i < 30; i++ {
		m = e.Push(1000)
	}

	assert.Equal(t, 30, m.Count)
	assert.InDelta(t, 60, m.HrBpm, 1e-9)
	assert.Equal(t, 0.0, m.Sdnn)
	assert.Equal(t, 0.0, m.Rmssd)
	assert.Equal(t, 0.0, m.LfHf)
	assert.Equal(t, 0.0, m.TotalPower)
}

func TestEngine_TotalPowerIsSumOfBands(t *testing.T) {
	e := NewEngine(60, DefaultBandNorms())

	var m Metrics
	for i := 0; i < 40; i++ {
		m = e.Push(1000 + 150*math.Sin(2*math.Pi*float64(i)/7))
	}

	assert.InDelta(t, m.Vlf+m.Lf+m.Hf, m.TotalPower, 1e-9)
	assert.GreaterOrEqual(t, m.Vlf, 0.0)
	assert.GreaterOrEqual(t, m.Lf, 0.0)
	assert.GreaterOrEqual(t, m.Hf, 0.0)
}

func TestWindow_BoundedEviction(t *testing.T) {
	w := NewWindow(3)
	for i := 1; i <= 5; i++ {
		w.Push(float64(i * 100))
	}

	assert.Equal(t, 3, w.Len())
	assert.Equal(t, []float64{300, 400, 500}, w.Values())
	assert.InDelta(t, 400, w.Mean(), 1e-12)
}

func TestWindow_MinimumCapacity(t *testing.T) {
	// 容量下限为2
	w := NewWindow(0)
	w.Push(100)
	w.Push(200)
	w.Push(300)
	assert.Equal(t, 2, w.Len())
	assert.Equal(t, []float64{200, 300}, w.Values())
}

func TestEngine_Reset(t *testing.T) {
	e := NewEngine(60, DefaultBandNorms())
	for i := 0; i < 10; i++ {
		e.Push(900)
	}
	require.Equal(t, 10, e.Len())

	e.Reset()
	assert.Equal(t, 0, e.Len())
	m := e.Compute()
	assert.Equal(t, 0.0, m.HrBpm)
	assert.Equal(t, 0.0, m.Sdnn)
}
