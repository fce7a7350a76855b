package events

import (
	"sync"
)

// AlertEvent 报警生命周期事件
type AlertEvent struct {
	AlertID   string `json:"alert_id"`
	PatientID string `json:"patient_id"`
	Type      string `json:"type"`
	Status    string `json:"status"`
}

// Handler 事件处理函数
type Handler func(event AlertEvent)

// Bus 报警事件总线
// 支持多个订阅者，注册不会互相覆盖；发布时同步调用所有处理函数。
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
}

// NewBus 创建事件总线
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe 注册事件处理函数
func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Publish 发布事件到所有订阅者
func (b *Bus) Publish(event AlertEvent) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
}
