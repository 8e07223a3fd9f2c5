package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel 定义日志级别类型
type LogLevel int

// 日志级别常量定义
const (
	DEBUG   LogLevel = iota // 调试信息
	INFO                    // 普通信息
	WARNING                 // 警告信息
	ERROR                   // 错误信息
	FATAL                   // 致命错误, 只记录不退出
)

const subscriberBuffer = 100

// Logger 日志记录器: zap 负责编码, 自身负责写文件和通知订阅者
type Logger struct {
	file        *os.File
	filename    string
	core        zapcore.Core
	level       zap.AtomicLevel
	mu          sync.Mutex
	subscribers []chan string
}

// NewLogger 创建新的日志记录器
// 参数:
//
//	filename: 日志文件路径
func NewLogger(filename string) (*Logger, error) {
	file, err := openLogFile(filename)
	if err != nil {
		return nil, err
	}

	l := &Logger{
		file:     file,
		filename: filename,
		level:    zap.NewAtomicLevelAt(zapcore.DebugLevel),
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	l.core = zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(l), l.level)

	return l, nil
}

func openLogFile(filename string) (*os.File, error) {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	return os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
}

// Write 写文件并通知订阅者, zap core 每条日志调用一次
func (l *Logger) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry := string(p)
	for _, ch := range l.subscribers {
		select {
		case ch <- entry:
		default: // 通道已满则跳过
		}
	}

	if l.file == nil {
		return len(p), nil
	}
	return l.file.Write(p)
}

// SetLevel 低于该级别的日志不再输出
func (l *Logger) SetLevel(level LogLevel) {
	l.level.SetLevel(level.zap())
}

// Log 记录日志
func (l *Logger) Log(level LogLevel, message string, fields ...zap.Field) {
	lvl := level.zap()
	if !l.core.Enabled(lvl) {
		return
	}
	// 直接写 core, FATAL 不触发 zap 的退出钩子
	_ = l.core.Write(zapcore.Entry{Level: lvl, Time: time.Now(), Message: message}, fields)
}

// Close 关闭日志文件
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// Reopen 重新打开日志文件, 收到 SIGHUP 时调用
func (l *Logger) Reopen(filename string) error {
	file, err := openLogFile(filename)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		_ = l.file.Close()
	}
	l.file = file
	l.filename = filename
	return nil
}

// CheckRotate 文件超过 maxSize 时轮转, maxSize 形如 "10 * 1024 * 1024"
func (l *Logger) CheckRotate(maxSize string) error {
	l.mu.Lock()
	file := l.file
	l.mu.Unlock()
	if file == nil {
		return nil
	}

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat log file: %w", err)
	}

	limit := eval(maxSize)
	if limit <= 0 || info.Size() <= limit {
		return nil
	}
	return l.rotateLog()
}

// rotateLog 改名后重新打开. 改名失败(文件已被删除或移走)时仍重新打开原文件名
func (l *Logger) rotateLog() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	ext := filepath.Ext(l.filename)
	rotated := fmt.Sprintf("%s.%s%s", strings.TrimSuffix(l.filename, ext), time.Now().Format("20060102150405"), ext)
	renameErr := os.Rename(l.filename, rotated)

	file, err := openLogFile(l.filename)
	if err != nil {
		// 继续写旧文件
		return fmt.Errorf("reopen log: %w", err)
	}
	if l.file != nil {
		_ = l.file.Close()
	}
	l.file = file

	if renameErr != nil {
		return fmt.Errorf("rotate log: %w", renameErr)
	}
	return nil
}

// Subscribe 订阅日志消息
// 返回值:
//
//	<-chan string: 只读通道，用于接收日志消息
func (l *Logger) Subscribe() <-chan string {
	l.mu.Lock()
	defer l.mu.Unlock()

	ch := make(chan string, subscriberBuffer)
	l.subscribers = append(l.subscribers, ch)
	return ch
}

// Unsubscribe 取消订阅, 客户端断开时调用
func (l *Logger) Unsubscribe(sub <-chan string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, ch := range l.subscribers {
		if ch == sub {
			l.subscribers = append(l.subscribers[:i], l.subscribers[i+1:]...)
			return
		}
	}
}

// String 实现LogLevel的String方法
func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARNING:
		return "WARNING"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

func (l LogLevel) zap() zapcore.Level {
	switch l {
	case DEBUG:
		return zapcore.DebugLevel
	case INFO:
		return zapcore.InfoLevel
	case WARNING:
		return zapcore.WarnLevel
	case ERROR:
		return zapcore.ErrorLevel
	default:
		return zapcore.FatalLevel
	}
}

// eval 计算 "a * b * c" 形式的乘积, 无法解析时返回 0
func eval(expr string) int64 {
	parts := strings.Split(expr, "*")
	var result int64 = 1
	for _, part := range parts {
		num, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return 0
		}
		result *= num
	}
	return result
}

// 以下是快捷日志方法
func (l *Logger) Debug(msg string, fields ...zap.Field)   { l.Log(DEBUG, msg, fields...) }
func (l *Logger) Info(msg string, fields ...zap.Field)    { l.Log(INFO, msg, fields...) }
func (l *Logger) Warning(msg string, fields ...zap.Field) { l.Log(WARNING, msg, fields...) }
func (l *Logger) Error(msg string, fields ...zap.Field)   { l.Log(ERROR, msg, fields...) }
func (l *Logger) Fatal(msg string, fields ...zap.Field)   { l.Log(FATAL, msg, fields...) }
