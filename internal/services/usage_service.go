// internal/services/usage_service.go
package services

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Corphon/SlideCrafter/internal/utils"
)

// UsageStats 模型调用统计
type UsageStats struct {
	TodayRequests int            `json:"today_requests"`
	MonthlyTokens int            `json:"monthly_tokens"`
	DailyStats    map[string]int `json:"daily_stats"`   // 日期 -> 调用次数
	MonthlyStats  map[string]int `json:"monthly_stats"` // 月份 -> token 数
	LastUpdated   time.Time      `json:"last_updated"`
}

// UsageService 记录模型调用次数和 token 用量，定期写入磁盘
type UsageService struct {
	statsFile string
	mutex     sync.Mutex
	stats     *UsageStats

	// 批量保存控制
	isDirty      bool
	lastSaveTime time.Time
	saveInterval time.Duration

	now      func() time.Time
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	logger   *utils.Logger
}

// NewUsageService 在 dir 下加载或创建统计文件，并启动定时保存
func NewUsageService(dir string) (*UsageService, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("创建统计目录失败: %w", err)
	}

	s := &UsageService{
		statsFile:    filepath.Join(dir, "usage_stats.json"),
		saveInterval: 30 * time.Second,
		now:          time.Now,
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
		logger:       utils.GetLogger(),
	}

	stats, err := s.loadStats()
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("统计文件无法解析，重新开始计数", map[string]interface{}{"error": err.Error()})
		}
		stats = newUsageStats(s.now())
	}
	s.stats = stats
	s.rollPeriod()

	go s.periodicSave()
	return s, nil
}

func newUsageStats(now time.Time) *UsageStats {
	return &UsageStats{
		DailyStats:   make(map[string]int),
		MonthlyStats: make(map[string]int),
		LastUpdated:  now,
	}
}

// loadStats 从文件加载统计数据
func (s *UsageService) loadStats() (*UsageStats, error) {
	data, err := os.ReadFile(s.statsFile)
	if err != nil {
		return nil, err
	}

	var stats UsageStats
	if err := json.Unmarshal(data, &stats); err != nil {
		return nil, fmt.Errorf("解析统计数据失败: %w", err)
	}
	if stats.DailyStats == nil {
		stats.DailyStats = make(map[string]int)
	}
	if stats.MonthlyStats == nil {
		stats.MonthlyStats = make(map[string]int)
	}
	return &stats, nil
}

// saveStats 原子写入统计文件
func (s *UsageService) saveStats(stats *UsageStats) error {
	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化统计数据失败: %w", err)
	}

	tempFile := s.statsFile + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return fmt.Errorf("写入临时统计文件失败: %w", err)
	}
	if err := os.Rename(tempFile, s.statsFile); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("替换统计文件失败: %w", err)
	}
	return nil
}

// rollPeriod 跨天重置当日计数，跨月重置月度 token。调用方持有锁或尚未发布。
func (s *UsageService) rollPeriod() {
	now := s.now()
	last := s.stats.LastUpdated

	if now.Format("2006-01-02") != last.Format("2006-01-02") {
		s.stats.TodayRequests = 0
		s.isDirty = true
	}
	if now.Format("2006-01") != last.Format("2006-01") {
		s.stats.MonthlyTokens = 0
		s.isDirty = true
	}
	if s.isDirty {
		s.stats.LastUpdated = now
	}
}

// RecordModelCall 记录一次模型调用
func (s *UsageService) RecordModelCall(tokens int) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.rollPeriod()

	now := s.now()
	s.stats.TodayRequests++
	s.stats.MonthlyTokens += tokens
	s.stats.DailyStats[now.Format("2006-01-02")]++
	s.stats.MonthlyStats[now.Format("2006-01")] += tokens
	s.stats.LastUpdated = now
	s.isDirty = true

	// 距上次保存过久时立即保存
	if now.Sub(s.lastSaveTime) > s.saveInterval {
		if err := s.saveStatsImmediate(); err != nil {
			s.logger.Warn("保存统计数据失败", map[string]interface{}{"error": err.Error()})
		}
	}
}

// GetUsageStats 返回统计数据的副本
func (s *UsageService) GetUsageStats() *UsageStats {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.rollPeriod()
	return &UsageStats{
		TodayRequests: s.stats.TodayRequests,
		MonthlyTokens: s.stats.MonthlyTokens,
		DailyStats:    maps.Clone(s.stats.DailyStats),
		MonthlyStats:  maps.Clone(s.stats.MonthlyStats),
		LastUpdated:   s.stats.LastUpdated,
	}
}

// ResetStats 清空统计数据
func (s *UsageService) ResetStats() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	fresh := newUsageStats(s.now())
	if err := s.saveStats(fresh); err != nil {
		return err
	}
	s.stats = fresh
	s.isDirty = false
	return nil
}

func (s *UsageService) saveStatsImmediate() error {
	if !s.isDirty {
		return nil
	}
	err := s.saveStats(s.stats)
	if err == nil {
		s.isDirty = false
		s.lastSaveTime = s.now()
	}
	return err
}

// periodicSave 定时保存未写入的数据，直到 Close
func (s *UsageService) periodicSave() {
	defer close(s.done)
	ticker := time.NewTicker(s.saveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.mutex.Lock()
			if err := s.saveStatsImmediate(); err != nil {
				s.logger.Warn("定时保存统计数据失败", map[string]interface{}{"error": err.Error()})
			}
			s.mutex.Unlock()
		case <-s.stop:
			return
		}
	}
}

// Close 停止定时保存并写入剩余数据
func (s *UsageService) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done

	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.saveStatsImmediate()
}
