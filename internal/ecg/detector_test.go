package ecg

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gaussBump 高斯波形（合成ECG用）
func gaussBump(x, mu, sigma float64) float64 {
	z := (x - mu) / sigma
	return math.Exp(-0.5 * z * z)
}

// synthECG 合成ECG样波形：Q谷、R尖峰、S谷、T波，按心动周期重复
// 非临床波形，仅用于检测器测试
func synthECG(fs, seconds, hrBpm float64) []float64 {
	period := 60.0 / hrBpm
	n := int(seconds * fs)
	out := make([]float64, n)
	for i := range out {
		t := float64(i) / fs
		phase := math.Mod(t, period) / period
		out[i] = -120*gaussBump(phase, 0.26, 0.012) +
			1000*gaussBump(phase, 0.30, 0.010) -
			200*gaussBump(phase, 0.34, 0.012) +
			250*gaussBump(phase, 0.60, 0.06)
	}
	return out
}

func TestDetectRPeaks_PureSineOnePerSecond(t *testing.T) {
	// 1Hz纯正弦：每秒一个R峰（±1样本）
	fs := 130.0
	n := int(5 * fs)
	raw := make([]float64, n)
	for i := range raw {
		raw[i] = math.Sin(2 * math.Pi * float64(i) / fs)
	}
	smoothed := MovingAverage(raw, SmoothingWindow(fs))

	peaks := DetectRPeaks(smoothed, raw, fs)
	require.Len(t, peaks, 5)

	// 正弦极大在 t=0.25+k 秒，即样本 32.5+130k
	for k, p := range peaks {
		expected := 32.5 + 130*float64(k)
		assert.InDelta(t, expected, float64(p), 2.0)
	}
}

func TestDetectRPeaks_SyntheticECG(t *testing.T) {
	fs := 130.0
	raw := synthECG(fs, 5, 60)
	smoothed := MovingAverage(raw, SmoothingWindow(fs))
	conditioned := RemoveBaseline(smoothed, fs)

	peaks := DetectRPeaks(conditioned, raw, fs)

	// 60 BPM、5秒窗口 → 5个R峰；T波不应被当成R峰
	require.Len(t, peaks, 5)

	// R峰在每周期的 phase 0.30 处：样本 ≈ 39 + 130k
	for k, p := range peaks {
		expected := 39.0 + 130*float64(k)
		assert.InDelta(t, expected, float64(p), 3.0)
	}
}

func TestDetectRPeaks_RefractoryProperty(t *testing.T) {
	// 任意输入下，峰间距不得小于400ms
	fs := 130.0
	raw := synthECG(fs, 10, 100)
	smoothed := MovingAverage(raw, SmoothingWindow(fs))
	conditioned := RemoveBaseline(smoothed, fs)

	peaks := DetectRPeaks(conditioned, raw, fs)
	require.NotEmpty(t, peaks)

	minDist := int(math.Round(RefractoryMs / 1000.0 * fs))
	for i := 1; i < len(peaks); i++ {
		assert.GreaterOrEqual(t, peaks[i]-peaks[i-1], minDist)
	}
}

func TestDetectRPeaks_FlatSignalNoPeaks(t *testing.T) {
	fs := 130.0
	raw := make([]float64, 650)
	smoothed := MovingAverage(raw, SmoothingWindow(fs))
	assert.Empty(t, DetectRPeaks(smoothed, raw, fs))
}

func TestDetectRPeaks_ShortWindow(t *testing.T) {
	assert.Nil(t, DetectRPeaks(make([]float64, 5), make([]float64, 5), 130))
}
