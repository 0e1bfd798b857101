package ecg

// Buffer 有界ECG环形缓冲
//
// 样本带全局序号：第k个被追加的样本序号为k（从0起）。
// 超出容量时最旧样本被淘汰，掉出缓冲的序号不再可取。
type Buffer struct {
	data  []float64
	cap   int
	head  int   // 最旧样本在 data 中的位置
	n     int   // 当前样本数
	total int64 // 已追加样本总数
}

// NewBuffer 创建容量为 capacity 的缓冲
func NewBuffer(capacity int) *Buffer {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer{
		data: make([]float64, capacity),
		cap:  capacity,
	}
}

// Append 追加一个样本
func (b *Buffer) Append(v float64) {
	if b.n < b.cap {
		b.data[(b.head+b.n)%b.cap] = v
		b.n++
	} else {
		b.data[b.head] = v
		b.head = (b.head + 1) % b.cap
	}
	b.total++
}

// Len 当前样本数
func (b *Buffer) Len() int {
	return b.n
}

// Total 已追加样本总数（= 下一个样本的全局序号）
func (b *Buffer) Total() int64 {
	return b.total
}

// FirstIndex 缓冲内最旧样本的全局序号
func (b *Buffer) FirstIndex() int64 {
	return b.total - int64(b.n)
}

// At 按全局序号取样本；序号已掉出缓冲或尚未写入时返回 false
func (b *Buffer) At(globalIndex int64) (float64, bool) {
	first := b.FirstIndex()
	if globalIndex < first || globalIndex >= b.total {
		return 0, false
	}
	offset := int(globalIndex - first)
	return b.data[(b.head+offset)%b.cap], true
}

// Last 复制最近 count 个样本，返回切片与首元素的全局序号
// count 超出现有样本数时返回全部
func (b *Buffer) Last(count int) ([]float64, int64) {
	if count > b.n {
		count = b.n
	}
	if count == 0 {
		return nil, b.total
	}
	out := make([]float64, count)
	start := b.n - count
	for i := 0; i < count; i++ {
		out[i] = b.data[(b.head+start+i)%b.cap]
	}
	return out, b.FirstIndex() + int64(start)
}

// Clear 清空缓冲（全局序号保持递增，不回卷）
func (b *Buffer) Clear() {
	b.head = 0
	b.n = 0
}
