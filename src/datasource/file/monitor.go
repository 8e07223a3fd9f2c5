// monitor.go
package file

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileMonitor 监听单个数据文件的变化.
// 监听的是所在目录, 编辑器通过 rename 替换文件时也能收到事件.
type FileMonitor struct {
	watchFile string
	watcher   *fsnotify.Watcher
	debounce  time.Duration
	lastMod   time.Time
	mu        sync.Mutex
}

func NewFileMonitor(filePath string, debounce time.Duration) (*FileMonitor, error) {
	abs, err := filepath.Abs(filePath)
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, err
	}

	m := &FileMonitor{
		watchFile: abs,
		watcher:   watcher,
		debounce:  debounce,
	}
	if info, err := os.Stat(abs); err == nil {
		m.lastMod = info.ModTime()
	}
	return m, nil
}

// Watch 阻塞直到 ctx 结束或 watcher 出错.
// 同一防抖窗口内的多次写入只触发一次 handler.
func (m *FileMonitor) Watch(ctx context.Context, handler func(string)) error {
	defer m.watcher.Close()

	var (
		timer   *time.Timer
		timerMu sync.Mutex
	)
	fire := func() {
		info, err := os.Stat(m.watchFile)
		if err != nil {
			return
		}
		m.mu.Lock()
		changed := !info.ModTime().Equal(m.lastMod)
		if changed {
			m.lastMod = info.ModTime()
		}
		m.mu.Unlock()
		if changed {
			handler(m.watchFile)
		}
	}

	for {
		select {
		case <-ctx.Done():
			timerMu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timerMu.Unlock()
			return nil
		case event, ok := <-m.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != m.watchFile {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			timerMu.Lock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(m.debounce, fire)
			timerMu.Unlock()
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}

// SetupSignalHandler SIGINT/SIGTERM 取消 ctx, SIGHUP 触发 reload
func SetupSignalHandler(cancel context.CancelFunc, reload func()) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	go func() {
		for sig := range sigChan {
			if sig == syscall.SIGHUP {
				if reload != nil {
					reload()
				}
				continue
			}
			signal.Stop(sigChan)
			cancel()
			return
		}
	}()
}
