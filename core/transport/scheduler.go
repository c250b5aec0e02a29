package transport

import (
	"sync"
	"sync/atomic"
	"time"
)

// DefaultFrameInterval 默认采样间隔，约等于 60Hz 的显示刷新率
const DefaultFrameInterval = time.Second / 60

// Task 可取消的重复任务句柄
type Task interface {
	Cancel()
}

// Scheduler 按帧节奏重复执行任务，直到返回的 Task 被取消
type Scheduler interface {
	Every(fn func()) Task
}

// FrameScheduler 用 time.Ticker 产生帧节拍。
// Post 不为空时，每一帧的回调通过 Post 投递到拥有者的事件循环中执行，
// 这样 Coordinator 始终只在一个 goroutine 上被访问。
type FrameScheduler struct {
	Interval time.Duration
	Post     func(func())
}

// NewFrameScheduler 创建帧调度器，interval <= 0 时使用默认帧间隔
func NewFrameScheduler(interval time.Duration, post func(func())) *FrameScheduler {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &FrameScheduler{Interval: interval, Post: post}
}

// Every 启动重复任务
func (s *FrameScheduler) Every(fn func()) Task {
	task := &frameTask{
		ticker: time.NewTicker(s.Interval),
		done:   make(chan struct{}),
	}
	post := s.Post
	if post == nil {
		post = func(f func()) { f() }
	}

	go func() {
		for {
			select {
			case <-task.done:
				return
			case <-task.ticker.C:
				post(func() {
					// 取消之前已经投递出去的帧直接丢弃
					if task.canceled.Load() {
						return
					}
					fn()
				})
			}
		}
	}()
	return task
}

type frameTask struct {
	ticker   *time.Ticker
	done     chan struct{}
	once     sync.Once
	canceled atomic.Bool
}

func (t *frameTask) Cancel() {
	t.once.Do(func() {
		t.canceled.Store(true)
		t.ticker.Stop()
		close(t.done)
	})
}
