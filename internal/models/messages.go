package models

// AttachMessage 流接入消息（hrv/{device_id}/attach）
type AttachMessage struct {
	FsEcg float64 `json:"fs_ecg"`
	FsAcc float64 `json:"fs_acc"`
}

// EcgBatchMessage ECG批量数据消息（hrv/{device_id}/ecg）
// Samples 为符号扩展前的24位原始计数
type EcgBatchMessage struct {
	Samples []int32 `json:"samples"`
}

// AccFrameMessage 加速度帧消息（hrv/{device_id}/acc）
// 三个数组长度必须一致，否则整帧丢弃
type AccFrameMessage struct {
	X []int16 `json:"x"`
	Y []int16 `json:"y"`
	Z []int16 `json:"z"`
}

// RrMessage 传感器自带的R-R间期消息（hrv/{device_id}/rr）
type RrMessage struct {
	RrMs float64 `json:"rr_ms"`
}

// MetricStreamMessage 指标输出流消息
type MetricStreamMessage struct {
	DeviceID  string  `json:"device_id"`
	SessionID string  `json:"session_id"`
	Name      string  `json:"name"`
	Value     float64 `json:"value"`
	Unit      string  `json:"unit"`
	Precision int     `json:"precision"`
	Timestamp int64   `json:"timestamp"`
}

// FiducialStreamMessage 基准点输出流消息
type FiducialStreamMessage struct {
	DeviceID    string  `json:"device_id"`
	SessionID   string  `json:"session_id"`
	Kind        string  `json:"kind"`
	GlobalIndex int64   `json:"global_index"`
	TimestampS  float64 `json:"timestamp_s"`
	Value       float64 `json:"value"`
}

// QtStreamMessage QT事件输出流消息
type QtStreamMessage struct {
	DeviceID  string  `json:"device_id"`
	SessionID string  `json:"session_id"`
	QtMs      float64 `json:"qt_ms"`
	QtcMs     float64 `json:"qtc_ms"`
	RTime     float64 `json:"r_time"`
	QTime     float64 `json:"q_time"`
	TendTime  float64 `json:"tend_time"`
}

// RealtimeSnapshot 实时快照（写入 Redis 缓存，供卡片类消费者读取）
type RealtimeSnapshot struct {
	DeviceID      string  `json:"device_id"`
	SessionID     string  `json:"session_id"`
	HrBpm         float64 `json:"hr_bpm"`
	Stress        float64 `json:"stress"`
	Energy        float64 `json:"energy"`
	Health        float64 `json:"health"`
	Sns           float64 `json:"sns"`
	Psns          float64 `json:"psns"`
	Vulnerability string  `json:"vulnerability"`
	Timestamp     int64   `json:"timestamp"`
}
