package cloud

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// RealtimeCache 缓存每辆车最近一次解出的实时数据,
// HTTP 拉取和主动推送都会覆盖写入
type RealtimeCache struct {
	entries *lru.Cache[string, map[string]interface{}]
}

// NewRealtimeCache 创建实时数据缓存
func NewRealtimeCache(size int) (*RealtimeCache, error) {
	entries, err := lru.New[string, map[string]interface{}](size)
	if err != nil {
		return nil, err
	}
	return &RealtimeCache{entries: entries}, nil
}

// Put 覆盖写入一辆车的实时数据
func (c *RealtimeCache) Put(vin string, payload map[string]interface{}) {
	c.entries.Add(vin, payload)
}

// Get 读取一辆车最近的实时数据
func (c *RealtimeCache) Get(vin string) (map[string]interface{}, bool) {
	return c.entries.Get(vin)
}

// UnsupportedEndpoints 记录每辆车不支持的端点。
// 服务端返回 8021 后该端点在进程内永久跳过,不再发起网络调用。
type UnsupportedEndpoints struct {
	mu  sync.RWMutex
	set map[string]map[Kind]struct{}
}

// NewUnsupportedEndpoints 创建不支持端点记录表
func NewUnsupportedEndpoints() *UnsupportedEndpoints {
	return &UnsupportedEndpoints{
		set: make(map[string]map[Kind]struct{}),
	}
}

// Mark 记录一辆车的某个端点不受支持
func (u *UnsupportedEndpoints) Mark(vin string, kind Kind) {
	u.mu.Lock()
	defer u.mu.Unlock()

	kinds, exists := u.set[vin]
	if !exists {
		kinds = make(map[Kind]struct{})
		u.set[vin] = kinds
	}
	kinds[kind] = struct{}{}
}

// Has 查询某端点是否已被记录为不支持
func (u *UnsupportedEndpoints) Has(vin string, kind Kind) bool {
	u.mu.RLock()
	defer u.mu.RUnlock()

	kinds, exists := u.set[vin]
	if !exists {
		return false
	}
	_, marked := kinds[kind]
	return marked
}
