// Package pipeline 会话管线
//
// 单时间线协作模型：一个goroutine消费有界事件通道，事件处理
// 一跑到底，中间无挂起点；显示刷新tick在同一select里，因此
// 观察到的缓冲快照是一致的。有界缓冲满时淘汰最旧，从不阻塞。
package pipeline

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"wisefido-hrv/internal/config"
	"wisefido-hrv/internal/ecg"
	"wisefido-hrv/internal/filter"
	"wisefido-hrv/internal/hrv"
	"wisefido-hrv/internal/indices"
	"wisefido-hrv/internal/ingress"
	"wisefido-hrv/internal/models"
	"wisefido-hrv/internal/store"
)

// Sink 出站发布接口（Redis发布器实现；核心可嵌入，nil表示不外发）
type Sink interface {
	PublishMetric(m models.MetricStreamMessage)
	PublishFiducial(p models.FiducialStreamMessage)
	PublishQt(q models.QtStreamMessage)
	PublishSnapshot(s models.RealtimeSnapshot)
}

// rrFallbackAfter 传感器RR静默多久后启用C3后备RR源
const rrFallbackAfter = 5 * time.Second

// eventChanCap 入站事件通道容量
const eventChanCap = 256

type eventKind int

const (
	evEcg eventKind = iota
	evAcc
	evRr
)

type event struct {
	kind eventKind
	ecg  []int32
	accX []int16
	accY []int16
	accZ []int16
	rr   float64
}

// Stats 会话统计（仅在会话停止后读取才有一致性保证）
type Stats struct {
	Ingress       ingress.Stats
	DroppedEvents int64
	EcgBufferLen  int
	AccBufferLen  int
	RrWindowLen   int
	Converged     bool
}

// Session 一个设备的处理会话
//
// 三条入站流接入时创建，断开时Close；Close同步且幂等，
// 完成全部出站流并丢弃所有缓冲、缓存与滤波状态。
type Session struct {
	ID       string
	DeviceID string

	cfg   config.PipelineConfig
	rates models.SamplingRates

	adapter   *ingress.Adapter
	align     *filter.AlignBuffer
	canceller *filter.Canceller
	rawBuf    *ecg.Buffer
	filtBuf   *ecg.Buffer
	proc      *ecg.Processor
	engine    *hrv.Engine
	agg       *indices.Aggregator
	metrics   *store.MetricStore

	sink Sink
	subs *fanout

	events        chan event
	done          chan struct{}
	closeOnce     sync.Once
	wg            sync.WaitGroup
	droppedEvents atomic.Int64
	vuln          atomic.Value // models.VulnerabilityLabel

	lastSensorRr time.Time

	logger *zap.Logger
}

// NewSession 创建会话
// cfg 应已通过 Normalize 钳制；sink 可为 nil（纯嵌入模式）
func NewSession(deviceID string, rates models.SamplingRates, cfg config.PipelineConfig, sink Sink, logger *zap.Logger) *Session {
	id := uuid.NewString()
	logger = logger.With(
		zap.String("device_id", deviceID),
		zap.String("session_id", id),
	)

	return &Session{
		ID:        id,
		DeviceID:  deviceID,
		cfg:       cfg,
		rates:     rates,
		adapter:   ingress.NewAdapter(rates, logger),
		align:     filter.NewAlignBuffer(cfg.AccBufferSize),
		canceller: filter.NewCanceller(cfg.LmsFilterOrder, cfg.LmsStepSize, cfg.MotionThresholdG),
		rawBuf:    ecg.NewBuffer(cfg.EcgBufferSize),
		filtBuf:   ecg.NewBuffer(cfg.EcgBufferSize),
		proc:      ecg.NewProcessor(rates.FsEcg, cfg.QtcFormula, logger),
		engine:    hrv.NewEngine(cfg.RrWindowCount, hrv.BandNorms(cfg.Bands)),
		agg:       indices.NewAggregator(logger),
		metrics:   store.NewMetricStore(),
		sink:      sink,
		subs:      newFanout(),
		events:    make(chan event, eventChanCap),
		done:      make(chan struct{}),
		logger:    logger,
	}
}

// Start 启动事件循环
func (s *Session) Start() {
	s.wg.Add(1)
	go s.run()
	s.logger.Info("Session started",
		zap.Float64("fs_ecg", s.rates.FsEcg),
		zap.Float64("fs_acc", s.rates.FsAcc),
		zap.Int("rr_window_count", s.cfg.RrWindowCount),
	)
}

func (s *Session) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(time.Duration(s.cfg.DisplayTickMs) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case ev := <-s.events:
			s.handle(ev)
		case <-ticker.C:
			s.refreshDisplay()
		}
	}
}

func (s *Session) handle(ev event) {
	switch ev.kind {
	case evEcg:
		s.handleEcgBatch(ev.ecg)
	case evAcc:
		s.handleAccFrame(ev.accX, ev.accY, ev.accZ)
	case evRr:
		s.handleRr(ev.rr)
	}
}

// AcceptEcgBatch 投递一批ECG原始计数（任意goroutine可调）
func (s *Session) AcceptEcgBatch(samples []int32) {
	s.post(event{kind: evEcg, ecg: samples})
}

// AcceptAccFrame 投递一帧三轴加速度
func (s *Session) AcceptAccFrame(x, y, z []int16) {
	s.post(event{kind: evAcc, accX: x, accY: y, accZ: z})
}

// AcceptRr 投递一个传感器RR间期（ms）
func (s *Session) AcceptRr(rrMs float64) {
	s.post(event{kind: evRr, rr: rrMs})
}

// post 非阻塞入队；队列满时丢最旧
func (s *Session) post(ev event) {
	select {
	case s.events <- ev:
		return
	default:
	}
	select {
	case <-s.events:
		s.droppedEvents.Add(1)
	default:
	}
	select {
	case s.events <- ev:
	default:
		s.droppedEvents.Add(1)
	}
}

// handleEcgBatch 入口→运动滤波→缓冲
func (s *Session) handleEcgBatch(raw []int32) {
	samples := s.adapter.AcceptEcgBatch(raw)
	for _, sm := range samples {
		x := float64(sm.Value)

		var filtered float64
		if acc := s.align.Nearest(sm.Timestamp); acc != nil {
			filtered = s.canceller.Step(x, acc.Magnitude(), acc.MotionComponent())
		} else {
			// 50ms内无参考样本：透传
			filtered = s.canceller.Passthrough(x)
		}

		s.rawBuf.Append(x)
		s.filtBuf.Append(filtered)
	}
}

func (s *Session) handleAccFrame(x, y, z []int16) {
	for _, sm := range s.adapter.AcceptAccFrame(x, y, z) {
		s.align.Push(sm)
	}
}

func (s *Session) handleRr(rrMs float64) {
	if !s.adapter.AcceptRr(rrMs) {
		return
	}
	s.lastSensorRr = time.Now()
	s.onAcceptedRr(rrMs)
}

// onAcceptedRr RR更新：重算HRV指标并驱动指数聚合
// 发布顺序：时域在前（开销小），频域在后，综合指数最后
func (s *Session) onAcceptedRr(rrMs float64) {
	m := s.engine.Push(rrMs)

	s.publishMetric("hr_bpm", m.HrBpm, "bpm", 0)
	s.publishMetric("sdnn", m.Sdnn, "ms", 1)
	s.publishMetric("rmssd", m.Rmssd, "ms", 1)
	s.publishMetric("pnn50", m.Pnn50, "%", 1)
	s.publishMetric("mxdmn", m.MxDMn, "ms", 0)
	s.publishMetric("amo50", m.Amo50, "%", 1)
	s.publishMetric("cv", m.Cv, "%", 2)

	s.publishMetric("vlf_power", m.Vlf, "ms2", 1)
	s.publishMetric("lf_power", m.Lf, "ms2", 1)
	s.publishMetric("hf_power", m.Hf, "ms2", 1)
	s.publishMetric("total_power", m.TotalPower, "ms2", 1)
	s.publishMetric("lf_hf", m.LfHf, "", 2)

	idx := s.agg.Update(indices.Inputs{
		LfHf:       m.LfHf,
		Sdnn:       m.Sdnn,
		Rmssd:      m.Rmssd,
		TotalPower: m.TotalPower,
		Count:      m.Count,
	})

	s.publishMetric("stress", idx.Stress, "score", 0)
	s.publishMetric("energy", idx.Energy, "score", 0)
	s.publishMetric("health", idx.Health, "score", 0)
	s.publishMetric("sns", idx.Sns, "score", 0)
	s.publishMetric("psns", idx.Psns, "score", 0)
	s.publishMetric("balance", idx.Balance, "", 2)
	s.vuln.Store(idx.Vulnerability)

	if s.sink != nil {
		s.sink.PublishSnapshot(models.RealtimeSnapshot{
			DeviceID:      s.DeviceID,
			SessionID:     s.ID,
			HrBpm:         m.HrBpm,
			Stress:        idx.Stress,
			Energy:        idx.Energy,
			Health:        idx.Health,
			Sns:           idx.Sns,
			Psns:          idx.Psns,
			Vulnerability: string(idx.Vulnerability),
			Timestamp:     time.Now().Unix(),
		})
	}
}

func (s *Session) publishMetric(name string, value float64, unit string, precision int) {
	m := models.MetricValue{Name: name, Value: value, Unit: unit, Precision: precision}
	s.metrics.Set(m)
	s.subs.publishMetric(m)
	if s.sink != nil {
		s.sink.PublishMetric(models.MetricStreamMessage{
			DeviceID:  s.DeviceID,
			SessionID: s.ID,
			Name:      name,
			Value:     value,
			Unit:      unit,
			Precision: precision,
			Timestamp: time.Now().Unix(),
		})
	}
}

// refreshDisplay 周期慢路径：在当前缓冲上重算显示窗口与基准点集
func (s *Session) refreshDisplay() {
	if s.filtBuf.Len() == 0 {
		return
	}

	windowLen := int(s.cfg.HistorySeconds * s.rates.FsEcg)
	filtered, start := s.filtBuf.Last(windowLen)
	unfiltered, _ := s.rawBuf.Last(windowLen)
	if len(filtered) != len(unfiltered) {
		// 两缓冲同步追加，长度不一致说明状态异常
		s.logger.Warn("ECG buffer length mismatch",
			zap.Int("filtered", len(filtered)),
			zap.Int("unfiltered", len(unfiltered)),
		)
		return
	}

	res := s.proc.Process(filtered, unfiltered, start)
	s.proc.PruneBefore(s.filtBuf.FirstIndex())

	// 显示序列
	if len(res.Conditioned) > 0 {
		pts := make([]models.DisplayPoint, len(res.Conditioned))
		for i, v := range res.Conditioned {
			pts[i] = models.DisplayPoint{
				Timestamp: float64(res.StartIndex+int64(i)) / s.rates.FsEcg,
				Value:     v,
			}
		}
		s.subs.publishDisplay(pts)
	}

	// 新基准点
	for _, f := range res.NewFiducials {
		s.subs.publishFiducial(f)
		if s.sink != nil {
			s.sink.PublishFiducial(models.FiducialStreamMessage{
				DeviceID:    s.DeviceID,
				SessionID:   s.ID,
				Kind:        string(f.Kind),
				GlobalIndex: f.GlobalIndex,
				TimestampS:  f.Timestamp,
				Value:       f.Value,
			})
		}
	}

	// QT事件
	for _, qt := range res.QtEvents {
		s.metrics.Set(models.MetricValue{Name: "qt_ms", Value: qt.QtMs, Unit: "ms", Precision: 0})
		s.metrics.Set(models.MetricValue{Name: "qtc_ms", Value: qt.QtcMs, Unit: "ms", Precision: 0})
		s.subs.publishQt(qt)
		if s.sink != nil {
			s.sink.PublishQt(models.QtStreamMessage{
				DeviceID:  s.DeviceID,
				SessionID: s.ID,
				QtMs:      qt.QtMs,
				QtcMs:     qt.QtcMs,
				RTime:     qt.RTime,
				QTime:     qt.QTime,
				TendTime:  qt.TendTime,
			})
		}
	}

	// 传感器RR静默时启用C3的后备RR源
	if time.Since(s.lastSensorRr) > rrFallbackAfter {
		for _, rr := range res.RrIntervals {
			if s.adapter.AcceptRr(rr) {
				s.onAcceptedRr(rr)
			}
		}
	}
}

// SubscribeMetrics 订阅指标流；返回通道与退订函数
func (s *Session) SubscribeMetrics() (<-chan models.MetricValue, func()) {
	return s.subs.subscribeMetric()
}

// SubscribeFiducials 订阅基准点流
func (s *Session) SubscribeFiducials() (<-chan models.FiducialPoint, func()) {
	return s.subs.subscribeFiducial()
}

// SubscribeQt 订阅QT事件流
func (s *Session) SubscribeQt() (<-chan models.QtEvent, func()) {
	return s.subs.subscribeQt()
}

// SubscribeDisplay 订阅显示序列流
func (s *Session) SubscribeDisplay() (<-chan []models.DisplayPoint, func()) {
	return s.subs.subscribeDisplay()
}

// Metrics 中心指标存储（读侧并发安全）
func (s *Session) Metrics() *store.MetricStore {
	return s.metrics
}

// Vulnerability 当前健康脆弱度标签（指数未发布前为空串）
func (s *Session) Vulnerability() models.VulnerabilityLabel {
	if v, ok := s.vuln.Load().(models.VulnerabilityLabel); ok {
		return v
	}
	return ""
}

// SetFilterEnabled 运行时旁路运动滤波
func (s *Session) SetFilterEnabled(enabled bool) {
	s.canceller.SetEnabled(enabled)
}

// Close 结束会话：同步且幂等
// 完成全部出站流，丢弃缓冲、缓存与滤波状态
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.wg.Wait()

		st := s.Stats()
		s.logger.Info("Session closed",
			zap.Int64("acc_dropped", st.Ingress.AccDropped),
			zap.Int64("rr_dropped", st.Ingress.RrDropped),
			zap.Int64("events_dropped", st.DroppedEvents),
		)

		s.subs.closeAll()
		s.rawBuf.Clear()
		s.filtBuf.Clear()
		s.align.Clear()
		s.canceller.Reset()
		s.engine.Reset()
		s.agg.Reset()
		s.proc.Reset()
		s.metrics.Clear()
	})
}

// Stats 会话统计快照
func (s *Session) Stats() Stats {
	return Stats{
		Ingress:       s.adapter.Stats(),
		DroppedEvents: s.droppedEvents.Load(),
		EcgBufferLen:  s.filtBuf.Len(),
		AccBufferLen:  s.align.Len(),
		RrWindowLen:   s.engine.Len(),
		Converged:     s.canceller.Converged(),
	}
}
