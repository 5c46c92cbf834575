// internal/services/progress_service.go
package services

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/Corphon/SlideCrafter/internal/models"
)

// 任务状态
const (
	TaskRunning   = "running"
	TaskCompleted = "completed"
	TaskFailed    = "failed"
	TaskCancelled = "cancelled"
)

// ProgressUpdate 表示进度更新
type ProgressUpdate struct {
	TaskID       string `json:"task_id"`
	DeckID       string `json:"deck_id"`
	Progress     int    `json:"progress"` // 进度百分比 (0-100)
	CurrentIndex int    `json:"current_index"`
	Total        int    `json:"total"`
	Message      string `json:"message"` // 描述性消息
	Status       string `json:"status"`  // running, completed, failed, cancelled
}

// Finished 是否为终止状态
func (u ProgressUpdate) Finished() bool {
	return u.Status != TaskRunning
}

// ProgressTracker 跟踪一个生成任务
type ProgressTracker struct {
	TaskID     string
	DeckID     string
	StartTime  time.Time
	UpdateTime time.Time
	Done       chan struct{} // 任务结束信号

	progress     int
	currentIndex int
	total        int
	message      string
	status       string
	subscribers  map[chan ProgressUpdate]bool
	cancel       context.CancelFunc
	listeners    []func(ProgressUpdate)
	mutex        sync.Mutex
}

// ProgressService 管理所有进度跟踪器
type ProgressService struct {
	trackers  map[string]*ProgressTracker
	listeners []func(ProgressUpdate)
	mutex     sync.RWMutex
}

// NewProgressService 创建进度服务实例
func NewProgressService() *ProgressService {
	return &ProgressService{
		trackers: make(map[string]*ProgressTracker),
	}
}

// AddListener 注册全局监听器，所有任务的每次更新都会同步调用它。
// 监听器不能阻塞。
func (s *ProgressService) AddListener(fn func(ProgressUpdate)) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.listeners = append(s.listeners, fn)
}

// CreateTracker 创建新的进度跟踪器，cancel 用于取消任务
func (s *ProgressService) CreateTracker(taskID, deckID string, cancel context.CancelFunc) *ProgressTracker {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if tracker, exists := s.trackers[taskID]; exists {
		return tracker
	}

	now := time.Now()
	tracker := &ProgressTracker{
		TaskID:      taskID,
		DeckID:      deckID,
		StartTime:   now,
		UpdateTime:  now,
		Done:        make(chan struct{}),
		message:     "任务初始化中...",
		status:      TaskRunning,
		subscribers: make(map[chan ProgressUpdate]bool),
		cancel:      cancel,
		listeners:   slices.Clone(s.listeners),
	}
	s.trackers[taskID] = tracker
	return tracker
}

// GetTracker 获取进度跟踪器
func (s *ProgressService) GetTracker(taskID string) (*ProgressTracker, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	tracker, exists := s.trackers[taskID]
	return tracker, exists
}

// CancelTask 取消正在运行的任务
func (s *ProgressService) CancelTask(taskID string) error {
	tracker, exists := s.GetTracker(taskID)
	if !exists {
		return fmt.Errorf("任务不存在: %s", taskID)
	}
	return tracker.Cancel()
}

// Snapshot 当前状态
func (t *ProgressTracker) Snapshot() ProgressUpdate {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.snapshotLocked()
}

func (t *ProgressTracker) snapshotLocked() ProgressUpdate {
	return ProgressUpdate{
		TaskID:       t.TaskID,
		DeckID:       t.DeckID,
		Progress:     t.progress,
		CurrentIndex: t.currentIndex,
		Total:        t.total,
		Message:      t.message,
		Status:       t.status,
	}
}

// broadcastLocked 非阻塞地通知订阅者，通道已满则跳过
func (t *ProgressTracker) broadcastLocked() {
	update := t.snapshotLocked()
	for subscriber := range t.subscribers {
		select {
		case subscriber <- update:
		default:
		}
	}
	for _, fn := range t.listeners {
		fn(update)
	}
}

// Update 用整套生成的进度覆盖当前进度
func (t *ProgressTracker) Update(p models.GenerationProgress) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.status != TaskRunning {
		return
	}
	t.currentIndex = p.CurrentIndex
	t.total = p.Total
	t.progress = p.Percent()
	if p.StatusMessage != "" {
		t.message = p.StatusMessage
	}
	t.UpdateTime = time.Now()
	t.broadcastLocked()
}

// finish 进入终止状态，只生效一次
func (t *ProgressTracker) finish(status, message string) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.status != TaskRunning {
		return
	}
	t.status = status
	if message != "" {
		t.message = message
	}
	if status == TaskCompleted {
		t.progress = 100
	}
	t.UpdateTime = time.Now()
	t.broadcastLocked()
	close(t.Done)
}

// Complete 标记任务完成
func (t *ProgressTracker) Complete(message string) {
	if message == "" {
		message = "任务已完成"
	}
	t.finish(TaskCompleted, message)
}

// Fail 标记任务失败
func (t *ProgressTracker) Fail(errorMsg string) {
	t.finish(TaskFailed, errorMsg)
}

// MarkCancelled 标记任务已取消
func (t *ProgressTracker) MarkCancelled(message string) {
	t.finish(TaskCancelled, message)
}

// Cancel 请求取消任务；任务自行在退出时标记最终状态
func (t *ProgressTracker) Cancel() error {
	t.mutex.Lock()
	status, cancel := t.status, t.cancel
	t.mutex.Unlock()

	if status != TaskRunning {
		return fmt.Errorf("任务已结束: %s", status)
	}
	if cancel == nil {
		return fmt.Errorf("任务不可取消: %s", t.TaskID)
	}
	cancel()
	return nil
}

// Subscribe 订阅进度更新，立即收到当前状态
func (t *ProgressTracker) Subscribe() chan ProgressUpdate {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	subscriber := make(chan ProgressUpdate, 10)
	t.subscribers[subscriber] = true
	subscriber <- t.snapshotLocked()
	return subscriber
}

// Unsubscribe 取消订阅
func (t *ProgressTracker) Unsubscribe(subscriber chan ProgressUpdate) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if _, ok := t.subscribers[subscriber]; !ok {
		return
	}
	delete(t.subscribers, subscriber)
	close(subscriber)
}

// CleanupCompletedTasks 清理已结束且超过 maxAge 的任务，返回清理数量
func (s *ProgressService) CleanupCompletedTasks(maxAge time.Duration) int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	removed := 0
	now := time.Now()
	for id, tracker := range s.trackers {
		tracker.mutex.Lock()
		finished := tracker.status != TaskRunning
		isOld := now.Sub(tracker.UpdateTime) > maxAge
		tracker.mutex.Unlock()

		if finished && isOld {
			delete(s.trackers, id)
			removed++
		}
	}
	return removed
}
