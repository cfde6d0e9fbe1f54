package cloud

import (
	"fmt"
	"sync"
	"time"
)

// Kind 区分触发操作的结果类别
type Kind int

const (
	KindRealtime Kind = iota
	KindGPS
	KindCommand
)

func (k Kind) String() string {
	switch k {
	case KindRealtime:
		return "realtime"
	case KindGPS:
		return "gps"
	case KindCommand:
		return "command"
	default:
		return "unknown"
	}
}

// 结果来源
const (
	SourcePush  = "push"
	SourceHTTP  = "http"
	SourceCache = "cache"
)

// Result 一次触发操作的最终载荷
type Result struct {
	Source  string
	Payload map[string]interface{}
}

// pendingCorrelation 一条在途的触发操作,等待推送或轮询兑现
type pendingCorrelation struct {
	serial  string
	vin     string
	kind    Kind
	created time.Time
	ch      chan Result
}

// correlationTable 按 requestSerial 索引的在途操作表。
// 触发调用和推送回调两侧并发读写,必须拿锁。
type correlationTable struct {
	mu      sync.Mutex
	entries map[string]*pendingCorrelation
}

func newCorrelationTable() *correlationTable {
	return &correlationTable{
		entries: make(map[string]*pendingCorrelation),
	}
}

// add 登记一条在途操作,同一序列号最多一条
func (t *correlationTable) add(serial, vin string, kind Kind) (*pendingCorrelation, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.entries[serial]; exists {
		return nil, fmt.Errorf("duplicate request serial %s", serial)
	}
	p := &pendingCorrelation{
		serial:  serial,
		vin:     vin,
		kind:    kind,
		created: time.Now(),
		ch:      make(chan Result, 1),
	}
	t.entries[serial] = p
	return p, nil
}

// remove 撤销登记,已经不存在时静默返回
func (t *correlationTable) remove(serial string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, serial)
}

// resolve 按序列号兑现一条在途操作
func (t *correlationTable) resolve(serial string, res Result) bool {
	t.mu.Lock()
	p, exists := t.entries[serial]
	if exists {
		delete(t.entries, serial)
	}
	t.mu.Unlock()

	if !exists {
		return false
	}
	p.ch <- res
	return true
}

// resolveOldest 兑现同车同类里最旧的一条。
// 服务端推送有时不带序列号,只能按 (vin, kind) 尽力匹配。
func (t *correlationTable) resolveOldest(vin string, kind Kind, res Result) bool {
	t.mu.Lock()
	var oldest *pendingCorrelation
	for _, p := range t.entries {
		if p.vin != vin || p.kind != kind {
			continue
		}
		if oldest == nil || p.created.Before(oldest.created) {
			oldest = p
		}
	}
	if oldest != nil {
		delete(t.entries, oldest.serial)
	}
	t.mu.Unlock()

	if oldest == nil {
		return false
	}
	oldest.ch <- res
	return true
}

func (t *correlationTable) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
