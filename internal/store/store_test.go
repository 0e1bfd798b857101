package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"wisefido-hrv/internal/models"
)

func TestMetricStore_SetGet(t *testing.T) {
	s := NewMetricStore()

	_, ok := s.Get("sdnn")
	assert.False(t, ok)

	s.Set(models.MetricValue{Name: "sdnn", Value: 42.5, Unit: "ms", Precision: 1})

	m, ok := s.Get("sdnn")
	require.True(t, ok)
	assert.Equal(t, 42.5, m.Value)
	assert.Equal(t, "ms", m.Unit)

	// 按键替换
	s.Set(models.MetricValue{Name: "sdnn", Value: 50, Unit: "ms", Precision: 1})
	m, _ = s.Get("sdnn")
	assert.Equal(t, 50.0, m.Value)
}

func TestMetricStore_SnapshotIsCopy(t *testing.T) {
	s := NewMetricStore()
	s.Set(models.MetricValue{Name: "stress", Value: 60})

	snap := s.Snapshot()
	require.Len(t, snap, 1)

	// 修改快照不影响存储
	snap["stress"] = models.MetricValue{Name: "stress", Value: 0}
	m, _ := s.Get("stress")
	assert.Equal(t, 60.0, m.Value)
}

func TestMetricStore_Clear(t *testing.T) {
	s := NewMetricStore()
	s.Set(models.MetricValue{Name: "a", Value: 1})
	s.Set(models.MetricValue{Name: "b", Value: 2})

	s.Clear()
	assert.Empty(t, s.Snapshot())
}
