package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"CommodityDashboard/src/utils"

	"github.com/go-gota/gota/dataframe"
)

const exportSheet = "Production"

// Exporter 将数据视图导出为xlsx
type Exporter struct {
	dir string
	now func() time.Time
}

func NewExporter(dir string) (*Exporter, error) {
	if err := ensureDir(dir); err != nil {
		return nil, err
	}
	return &Exporter{dir: dir, now: time.Now}, nil
}

// ensureDir 确保目录存在
func ensureDir(dirPath string) error {
	if info, err := os.Stat(dirPath); err == nil {
		if info.IsDir() {
			return nil
		}
		return fmt.Errorf("%s exists but is not a directory", dirPath)
	}
	return os.MkdirAll(dirPath, 0o755)
}

// WriteTo 写入任意 writer, HTTP 下载使用
func (e *Exporter) WriteTo(w io.Writer, df dataframe.DataFrame) error {
	f, err := utils.WriteExcel(df, exportSheet)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("写出xlsx失败: %w", err)
	}
	return nil
}

// Save 以 <prefix>_<时间戳>.xlsx 保存到导出目录, 返回文件路径
func (e *Exporter) Save(df dataframe.DataFrame, prefix string) (string, error) {
	name := fmt.Sprintf("%s_%s.xlsx", prefix, e.now().Format("20060102150405"))
	path := filepath.Join(e.dir, name)
	if err := utils.SaveToExcel(df, path, exportSheet); err != nil {
		return "", err
	}
	return path, nil
}
