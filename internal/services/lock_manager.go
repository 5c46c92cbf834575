// internal/services/lock_manager.go
package services

import (
	"sync"
	"time"
)

// LockManager 按演示文稿ID分配互斥锁，定期回收长期未使用的锁
type LockManager struct {
	deckLocks  map[string]*LockInfo
	globalLock sync.Mutex
	lockTTL    time.Duration
	maxLocks   int
	stop       chan struct{}
	stopOnce   sync.Once
}

// LockInfo 包装锁和相关信息
type LockInfo struct {
	Mutex    *sync.Mutex
	LastUsed time.Time
	// 正在等待或持有此锁的调用数，非零时不会被回收
	refs int
}

// NewLockManager 创建锁管理器并启动清理器，使用完毕后调用 Stop
func NewLockManager() *LockManager {
	lm := &LockManager{
		deckLocks: make(map[string]*LockInfo),
		lockTTL:   30 * time.Minute,
		maxLocks:  200,
		stop:      make(chan struct{}),
	}
	go lm.cleanupLoop(5 * time.Minute)
	return lm
}

func (lm *LockManager) acquire(deckID string) *LockInfo {
	lm.globalLock.Lock()
	defer lm.globalLock.Unlock()

	info, exists := lm.deckLocks[deckID]
	if !exists {
		info = &LockInfo{Mutex: &sync.Mutex{}}
		lm.deckLocks[deckID] = info
	}
	info.refs++
	info.LastUsed = time.Now()
	return info
}

func (lm *LockManager) release(info *LockInfo) {
	lm.globalLock.Lock()
	defer lm.globalLock.Unlock()
	info.refs--
	info.LastUsed = time.Now()
}

// ExecuteWithDeckLock 在演示文稿锁保护下执行操作
func (lm *LockManager) ExecuteWithDeckLock(deckID string, fn func() error) error {
	info := lm.acquire(deckID)
	defer lm.release(info)

	info.Mutex.Lock()
	defer info.Mutex.Unlock()
	return fn()
}

// Stop 停止清理器
func (lm *LockManager) Stop() {
	lm.stopOnce.Do(func() { close(lm.stop) })
}

func (lm *LockManager) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			lm.cleanupUnusedLocks()
		case <-lm.stop:
			return
		}
	}
}

// cleanupUnusedLocks 锁数量过多时回收超时且无人使用的锁
func (lm *LockManager) cleanupUnusedLocks() int {
	lm.globalLock.Lock()
	defer lm.globalLock.Unlock()

	if len(lm.deckLocks) <= lm.maxLocks {
		return 0
	}
	removed := 0
	now := time.Now()
	for deckID, info := range lm.deckLocks {
		if info.refs == 0 && now.Sub(info.LastUsed) > lm.lockTTL {
			delete(lm.deckLocks, deckID)
			removed++
		}
	}
	return removed
}
