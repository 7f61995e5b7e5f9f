package transport

import (
	"strings"
	"sync"
)

// MaxLineLength 单行最大长度，超过时丢弃未完成的部分
const MaxLineLength = 4096

// LineSplitter 把任意切分的文本块重组为完整的行
// 超长的行整行丢弃，直到下一个换行符为止。
type LineSplitter struct {
	mu         sync.Mutex
	pending    strings.Builder
	discarding bool
}

// Feed 写入一个文本块，返回其中已完整的行（不含换行符）
func (l *LineSplitter) Feed(chunk string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	var lines []string
	for {
		i := strings.IndexByte(chunk, '\n')
		if i < 0 {
			break
		}
		if !l.discarding && l.pending.Len()+i <= MaxLineLength {
			l.pending.WriteString(chunk[:i])
			lines = append(lines, strings.TrimRight(l.pending.String(), "\r"))
		}
		l.pending.Reset()
		l.discarding = false
		chunk = chunk[i+1:]
	}

	if l.discarding {
		return lines
	}
	if l.pending.Len()+len(chunk) > MaxLineLength {
		l.pending.Reset()
		l.discarding = true
		return lines
	}
	l.pending.WriteString(chunk)
	return lines
}

// Flush 返回并清空剩余的未完成行
func (l *LineSplitter) Flush() (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.discarding || l.pending.Len() == 0 {
		l.pending.Reset()
		l.discarding = false
		return "", false
	}
	line := strings.TrimRight(l.pending.String(), "\r")
	l.pending.Reset()
	return line, true
}
