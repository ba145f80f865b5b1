package progress

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/dyike/TradeMind/internal/logging"
)

const forwardTimeout = 5 * time.Second

// LogBridge observes the application log stream and forwards module
// start/completion lines to the tracker registered for the analysis id
// mentioned in the line. This lets deep pipeline code advance progress
// without holding a tracker reference.
type LogBridge struct {
	mu       sync.RWMutex
	trackers map[string]*Tracker
	remove   func()
}

// NewLogBridge installs the bridge on the global logger. Call Close to
// detach it.
func NewLogBridge() *LogBridge {
	b := &LogBridge{trackers: make(map[string]*Tracker)}
	b.remove = logging.AddHook(b.observe)
	return b
}

// Register binds an analysis id to its tracker. Re-registering the
// same id is a no-op.
func (b *LogBridge) Register(analysisID string, t *Tracker) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.trackers[analysisID]; ok {
		return
	}
	b.trackers[analysisID] = t
}

// Unregister detaches an analysis id.
func (b *LogBridge) Unregister(analysisID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.trackers, analysisID)
}

// Close detaches the bridge from the logger.
func (b *LogBridge) Close() {
	if b.remove != nil {
		b.remove()
	}
}

func isModuleLine(message string) bool {
	return strings.Contains(message, "[模块开始]") ||
		strings.Contains(message, "[模块完成]") ||
		strings.Contains(message, "分析完成")
}

// observe runs inside the logging path, so the forward happens on a
// separate goroutine with a timeout and never blocks the logger.
func (b *LogBridge) observe(entry zapcore.Entry) {
	message := entry.Message
	if !isModuleLine(message) {
		return
	}

	b.mu.RLock()
	var target *Tracker
	for id, t := range b.trackers {
		if strings.Contains(message, id) {
			target = t
			break
		}
	}
	b.mu.RUnlock()
	if target == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), forwardTimeout)
		defer cancel()
		target.UpdateMessage(ctx, message)
	}()
}
