// data.go
package processor

import (
	"fmt"
	"sync"
	"time"

	"CommodityDashboard/src/config"
	"CommodityDashboard/src/utils"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// PercentageColumn 全局占比列, 加载时计算一次
const PercentageColumn = "Percentage"

// Record 一行数据
type Record struct {
	Region     string  `json:"region"`
	SubRegion  string  `json:"sub_region"`
	Commodity  string  `json:"commodity"`
	Production float64 `json:"production"`
	Percentage float64 `json:"percentage"`
}

// Table 启动时构建的只读快照, 构建后不再修改.
// 多个请求并发读取同一个 Table 不需要加锁.
type Table struct {
	df       dataframe.DataFrame
	cols     config.Columns
	all      string
	topN     int
	total    float64
	source   string
	loadedAt time.Time
}

// NewTable 计算总产量和每行的全局占比
func NewTable(df dataframe.DataFrame, dcfg *config.DataConfig, source string) (*Table, error) {
	if df.Err != nil {
		return nil, fmt.Errorf("dataframe 无效: %w", df.Err)
	}
	cols := dcfg.Columns
	if !utils.HasColumn(df, cols.Production) {
		return nil, fmt.Errorf("缺少列 %s", cols.Production)
	}

	production := df.Col(cols.Production).Float()
	var total float64
	for _, v := range production {
		total += v
	}

	df = df.Mutate(series.New(percentages(production, total), series.Float, PercentageColumn))
	if df.Err != nil {
		return nil, fmt.Errorf("计算占比失败: %w", df.Err)
	}

	return &Table{
		df:       df,
		cols:     cols,
		all:      dcfg.AllLabel,
		topN:     dcfg.TopSubRegions,
		total:    total,
		source:   source,
		loadedAt: time.Now(),
	}, nil
}

// percentages 总量为 0 时占比记为 0
func percentages(values []float64, total float64) []float64 {
	out := make([]float64, len(values))
	if total == 0 {
		return out
	}
	for i, v := range values {
		out[i] = v / total * 100
	}
	return out
}

// Total 全表总产量
func (t *Table) Total() float64 { return t.total }

func (t *Table) Len() int { return t.df.Nrow() }

func (t *Table) AllLabel() string { return t.all }

func (t *Table) Source() string { return t.source }

func (t *Table) LoadedAt() time.Time { return t.loadedAt }

// Records 按原始顺序返回全部行
func (t *Table) Records() []Record {
	return t.subset(t.df).Records()
}

// Regions 下拉框选项, "All" 在前, 其余按首次出现顺序
func (t *Table) Regions() []string {
	return append([]string{t.all}, utils.Unique(t.df.Col(t.cols.Region).Records())...)
}

// Commodities 下拉框选项
func (t *Table) Commodities() []string {
	return append([]string{t.all}, utils.Unique(t.df.Col(t.cols.Commodity).Records())...)
}

// Store 持有当前快照, 重载时整体替换
type Store struct {
	table *Table
	mu    sync.RWMutex
}

func NewStore(t *Table) *Store {
	return &Store{table: t}
}

// Get 获取当前快照(线程安全)
func (s *Store) Get() *Table {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.table
}

// Set 替换快照(线程安全)
func (s *Store) Set(t *Table) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table = t
}
