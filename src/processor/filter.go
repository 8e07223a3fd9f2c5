package processor

import (
	"sort"

	"CommodityDashboard/src/config"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// Selection 两个下拉框的当前值
type Selection struct {
	Region    string `json:"region"`
	Commodity string `json:"commodity"`
}

// Normalize 空值按 "All" 处理
func (s Selection) Normalize(all string) Selection {
	if s.Region == "" {
		s.Region = all
	}
	if s.Commodity == "" {
		s.Commodity = all
	}
	return s
}

// Subset 过滤后的行
type Subset struct {
	df   dataframe.DataFrame
	cols config.Columns
}

// Group 按某一列汇总的产量
type Group struct {
	Key        string  `json:"key"`
	Production float64 `json:"production"`
}

// Filter 四分支过滤, 结果按 Production 降序.
// 取值不在数据中时返回空子集.
func (t *Table) Filter(region, commodity string) Subset {
	return t.sortDesc(t.match(region, commodity))
}

// filterForShare 子区域饼图使用的过滤: 只有两个条件都具体时才排序
func (t *Table) filterForShare(region, commodity string) Subset {
	df := t.match(region, commodity)
	if region != t.all && commodity != t.all {
		return t.sortDesc(df)
	}
	return t.subset(df)
}

func (t *Table) match(region, commodity string) dataframe.DataFrame {
	df := t.df
	if region != t.all {
		df = filterEq(df, t.cols.Region, region)
	}
	if commodity != t.all {
		df = filterEq(df, t.cols.Commodity, commodity)
	}
	return df
}

func filterEq(df dataframe.DataFrame, col, value string) dataframe.DataFrame {
	if df.Nrow() == 0 {
		return df
	}
	out := df.Filter(dataframe.F{Colname: col, Comparator: series.Eq, Comparando: value})
	if out.Err != nil || out.Nrow() == 0 {
		return emptyLike(df)
	}
	return out
}

// emptyLike 保留列名和类型的空表
func emptyLike(df dataframe.DataFrame) dataframe.DataFrame {
	cols := make([]series.Series, 0, df.Ncol())
	for _, name := range df.Names() {
		cols = append(cols, series.New([]string{}, df.Col(name).Type(), name))
	}
	return dataframe.New(cols...)
}

func (t *Table) sortDesc(df dataframe.DataFrame) Subset {
	if df.Nrow() > 1 {
		df = df.Arrange(dataframe.RevSort(t.cols.Production))
	}
	return t.subset(df)
}

func (t *Table) subset(df dataframe.DataFrame) Subset {
	return Subset{df: df, cols: t.cols}
}

func (s Subset) Len() int { return s.df.Nrow() }

// Frame 导出用
func (s Subset) Frame() dataframe.DataFrame { return s.df }

// Total 子集的总产量
func (s Subset) Total() float64 {
	var total float64
	for _, v := range s.production() {
		total += v
	}
	return total
}

func (s Subset) production() []float64 {
	if s.df.Nrow() == 0 {
		return nil
	}
	return s.df.Col(s.cols.Production).Float()
}

func (s Subset) column(name string) []string {
	if s.df.Nrow() == 0 {
		return nil
	}
	return s.df.Col(name).Records()
}

// Records 转为结构体切片, 顺序与子集一致
func (s Subset) Records() []Record {
	n := s.df.Nrow()
	if n == 0 {
		return []Record{}
	}
	regions := s.column(s.cols.Region)
	subRegions := s.column(s.cols.SubRegion)
	commodities := s.column(s.cols.Commodity)
	production := s.production()
	percentage := s.df.Col(PercentageColumn).Float()

	out := make([]Record, n)
	for i := 0; i < n; i++ {
		out[i] = Record{
			Region:     regions[i],
			SubRegion:  subRegions[i],
			Commodity:  commodities[i],
			Production: production[i],
			Percentage: percentage[i],
		}
	}
	return out
}

// SumBy 按列分组求 Production 之和, 结果按分组键升序
func (s Subset) SumBy(col string) []Group {
	if s.df.Nrow() == 0 {
		return []Group{}
	}

	agg := s.df.GroupBy(col).Aggregation(
		[]dataframe.AggregationType{dataframe.Aggregation_SUM},
		[]string{s.cols.Production},
	)
	if agg.Err != nil {
		return s.sumByRecords(col)
	}

	valueCol := ""
	for _, name := range agg.Names() {
		if name != col {
			valueCol = name
			break
		}
	}
	if valueCol == "" {
		return s.sumByRecords(col)
	}

	keys := agg.Col(col).Records()
	values := agg.Col(valueCol).Float()
	out := make([]Group, len(keys))
	for i := range keys {
		out[i] = Group{Key: keys[i], Production: values[i]}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// sumByRecords GroupBy 失败时的逐行汇总
func (s Subset) sumByRecords(col string) []Group {
	keys := s.column(col)
	production := s.production()
	sums := make(map[string]float64, len(keys))
	var order []string
	for i, k := range keys {
		if _, ok := sums[k]; !ok {
			order = append(order, k)
		}
		sums[k] += production[i]
	}
	sort.Strings(order)
	out := make([]Group, len(order))
	for i, k := range order {
		out[i] = Group{Key: k, Production: sums[k]}
	}
	return out
}
