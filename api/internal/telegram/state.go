package telegram

import (
	"sync"
	"time"
)

const (
	albumDebounce = 1200 * time.Millisecond
	maxPixels     = 18_000_000
)

// photoBatch копит фото одного альбома до истечения debounce.
type photoBatch struct {
	ChatID       int64
	ReplyTo      int
	MediaGroupID string

	mu      sync.Mutex
	images  [][]byte
	caption string
	timer   *time.Timer
	done    bool // забрана таймером, новые фото идут в новую пачку
}

// acquire помечает чат занятым решением. false, если решение уже идёт.
func (r *Router) acquire(chatID int64) bool {
	_, busy := r.inflight.LoadOrStore(chatID, struct{}{})
	return !busy
}

func (r *Router) release(chatID int64) { r.inflight.Delete(chatID) }

// chatLock выстраивает реплики одного чата в очередь: следующая читает
// историю только после того, как предыдущая сохранила ответ.
func (r *Router) chatLock(chatID int64) *sync.Mutex {
	mu, _ := r.chats.LoadOrStore(chatID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}
