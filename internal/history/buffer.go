package history

import (
	"bear-monitor/internal/models"
)

// DefaultCapacity 默认保留的样本数（约 25 分钟 @ 1Hz）
const DefaultCapacity = 1500

// Buffer 定长样本缓冲区，按接收顺序保存，满后淘汰最旧的样本
// 非并发安全，由 session 的锁保护。
type Buffer struct {
	capacity int
	samples  []models.Sample
}

// NewBuffer 创建缓冲区，capacity <= 0 时使用默认值
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{
		capacity: capacity,
		samples:  make([]models.Sample, 0, capacity),
	}
}

// Append 追加样本，超出容量时丢弃最旧的一条
func (b *Buffer) Append(s models.Sample) {
	if len(b.samples) >= b.capacity {
		n := copy(b.samples, b.samples[len(b.samples)-b.capacity+1:])
		b.samples = b.samples[:n]
	}
	b.samples = append(b.samples, s)
}

// Snapshot 返回副本（时间顺序）
func (b *Buffer) Snapshot() []models.Sample {
	out := make([]models.Sample, len(b.samples))
	copy(out, b.samples)
	return out
}

// Latest 最新样本
func (b *Buffer) Latest() (models.Sample, bool) {
	if len(b.samples) == 0 {
		return models.Sample{}, false
	}
	return b.samples[len(b.samples)-1], true
}

// Len 当前样本数
func (b *Buffer) Len() int { return len(b.samples) }

// Cap 容量
func (b *Buffer) Cap() int { return b.capacity }

// Clear 清空
func (b *Buffer) Clear() {
	b.samples = b.samples[:0]
}
