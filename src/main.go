package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"CommodityDashboard/src/config"
	"CommodityDashboard/src/datasource/file"
	"CommodityDashboard/src/processor"
	"CommodityDashboard/src/storage"
	"CommodityDashboard/src/web"

	"github.com/robfig/cron"
	"go.uber.org/zap"
)

func main() {
	jsonFolder := "./config"
	jsonFile := "config.json"
	dataJsonFile := "dataconfig.json"
	cfg, dcfg, err := config.LoadConfig(jsonFolder, jsonFile, dataJsonFile)
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// 初始化日志系统
	logger, err := storage.NewLogger(cfg.LogName)
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer logger.Close()

	// 首次加载失败直接退出, 之后的重载失败保留旧快照
	table, err := loadTable(cfg, dcfg)
	if err != nil {
		logger.Fatal("首次加载数据失败", zap.String("file", cfg.DataFile), zap.Error(err))
		log.Fatal("Failed to load data:", err)
	}
	store := processor.NewStore(table)
	logger.Info("数据已加载",
		zap.String("file", cfg.DataFile),
		zap.Int("rows", table.Len()),
		zap.Float64("total", table.Total()))

	exporter, err := storage.NewExporter(cfg.DataDir)
	if err != nil {
		log.Fatal("Failed to initialize exporter:", err)
	}

	if err := writePidFile(cfg.PidFile); err != nil {
		logger.Warning("写入 pid 文件失败", zap.String("file", cfg.PidFile), zap.Error(err))
	} else {
		defer os.Remove(cfg.PidFile)
	}

	reload := func() {
		t1 := time.Now()
		next, err := loadTable(cfg, dcfg)
		if err != nil {
			logger.Error("重载数据失败, 继续使用旧数据", zap.String("file", cfg.DataFile), zap.Error(err))
			return
		}
		store.Set(next)
		logger.Info("数据已重载",
			zap.Int("rows", next.Len()),
			zap.Float64("total", next.Total()),
			zap.Duration("elapsed", time.Since(t1)))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	file.SetupSignalHandler(cancel, func() {
		if err := logger.Reopen(cfg.LogName); err != nil {
			logger.Error("重新打开日志失败", zap.Error(err))
		}
		logger.Info("收到 SIGHUP, 重新加载数据")
		reload()
	})

	if cfg.Watch {
		monitor, err := file.NewFileMonitor(cfg.DataFile, time.Duration(cfg.ReloadDebounce))
		if err != nil {
			logger.Error("创建文件监控失败", zap.Error(err))
		} else {
			go func() {
				err := monitor.Watch(ctx, func(path string) {
					logger.Info("数据文件已变化", zap.String("file", path))
					reload()
				})
				if err != nil {
					logger.Error("文件监控退出", zap.Error(err))
				}
			}()
		}
	}

	c, err := newScheduler(cfg, logger, store, exporter)
	if err != nil {
		logger.Error("创建定时任务失败", zap.Error(err))
		return
	}
	c.Start()
	defer c.Stop()

	srv, err := web.NewServer(store, logger, exporter)
	if err != nil {
		log.Fatal("Failed to initialize server:", err)
	}
	if err := srv.ListenAndServe(ctx, cfg.Listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("HTTP 服务退出", zap.Error(err))
		return
	}
	logger.Info("服务已停止")
}

// loadTable 读取并清洗数据文件, 生成新的快照
func loadTable(cfg *config.Config, dcfg *config.DataConfig) (*processor.Table, error) {
	df, err := file.ReadTable(cfg.DataFile, cfg.SheetName, dcfg)
	if err != nil {
		return nil, err
	}
	return processor.NewTable(df, dcfg, filepath.Base(cfg.DataFile))
}

// newScheduler 日志轮转和定时导出
func newScheduler(cfg *config.Config, logger *storage.Logger, store *processor.Store, exporter *storage.Exporter) (*cron.Cron, error) {
	c := cron.New()

	if cfg.RotateSchedule != "" {
		err := c.AddFunc(cfg.RotateSchedule, func() {
			if err := logger.CheckRotate(cfg.LogMaxSize); err != nil {
				logger.Error("日志轮转失败", zap.Error(err))
			}
		})
		if err != nil {
			return nil, fmt.Errorf("rotate schedule %q: %w", cfg.RotateSchedule, err)
		}
	}

	if cfg.ExportSchedule != "" {
		err := c.AddFunc(cfg.ExportSchedule, func() {
			table := store.Get()
			if table == nil {
				return
			}
			all := table.AllLabel()
			path, err := exporter.Save(table.Filter(all, all).Frame(), "commodity")
			if err != nil {
				logger.Error("定时导出失败", zap.Error(err))
				return
			}
			logger.Info("定时导出完成", zap.String("file", path))
		})
		if err != nil {
			return nil, fmt.Errorf("export schedule %q: %w", cfg.ExportSchedule, err)
		}
	}
	return c, nil
}

func writePidFile(path string) error {
	if path == "" {
		return nil
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0644)
}
