// reader.go
package file

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"CommodityDashboard/src/config"
	"CommodityDashboard/src/utils"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/tealeg/xlsx"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

var (
	ErrMissingColumn     = errors.New("missing column")
	ErrNotNumeric        = errors.New("value is not numeric")
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

// MissingValue 缺失单元格填充的值
const MissingValue = "0"

// ReadTable 按扩展名读取数据文件并完成清洗
func ReadTable(filePath, sheetName string, dcfg *config.DataConfig) (dataframe.DataFrame, error) {
	var (
		df  dataframe.DataFrame
		err error
	)

	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".xlsx":
		df, err = ReadXLSX(filePath, sheetName)
	case ".csv", ".txt", ".tsv", "":
		df, err = ReadCSV(filePath, dcfg.DelimiterRune(), dcfg.Encoding)
	default:
		return dataframe.DataFrame{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filePath)
	}
	if err != nil {
		return dataframe.DataFrame{}, err
	}

	return ProcessData(df, dcfg)
}

// ReadCSV 读取分隔符文本, 所有列按字符串载入, 类型转换交给 ProcessData.
// 只有标题行时返回 0 行的表.
func ReadCSV(filePath string, delimiter rune, charset string) (dataframe.DataFrame, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("open %s: %w", filePath, err)
	}
	defer f.Close()

	data, err := io.ReadAll(decodeReader(f, charset))
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("read %s: %w", filePath, err)
	}

	if header, ok := headerOnly(data, delimiter); ok {
		return emptyFrame(header), nil
	}

	df := dataframe.ReadCSV(bytes.NewReader(data),
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.WithDelimiter(delimiter),
	)
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("parse %s: %w", filePath, df.Err)
	}
	return df, nil
}

// headerOnly 判断文本是否只有标题行, gota 会把这种情况当作错误
func headerOnly(data []byte, delimiter rune) ([]string, bool) {
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = delimiter
	header, err := r.Read()
	if err != nil {
		return nil, false
	}
	if _, err := r.Read(); err != io.EOF {
		return nil, false
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	return header, true
}

// emptyFrame 只有列名的 0 行表
func emptyFrame(headers []string) dataframe.DataFrame {
	seriesList := make([]series.Series, len(headers))
	for i, name := range headers {
		seriesList[i] = series.New([]string{}, series.String, name)
	}
	return dataframe.New(seriesList...)
}

// decodeReader 中文 Excel 导出的 csv 常见 GBK 编码
func decodeReader(input io.Reader, charset string) io.Reader {
	switch strings.ToLower(charset) {
	case "gbk", "gb2312":
		return transform.NewReader(input, simplifiedchinese.GBK.NewDecoder())
	case "gb18030":
		return transform.NewReader(input, simplifiedchinese.GB18030.NewDecoder())
	default:
		return input
	}
}

// ReadXLSX 读取xlsx工作表, sheetName 为空时取第一个工作表
func ReadXLSX(filePath, sheetName string) (dataframe.DataFrame, error) {
	xlFile, err := xlsx.OpenFile(filePath)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("xlsx open file %s: %w", filePath, err)
	}

	if len(xlFile.Sheets) == 0 {
		return dataframe.DataFrame{}, fmt.Errorf("excel文件中没有工作表: %s", filePath)
	}

	sheet := xlFile.Sheets[0]
	if sheetName != "" {
		s, ok := xlFile.Sheet[sheetName]
		if !ok {
			return dataframe.DataFrame{}, fmt.Errorf("工作表 %q 不存在: %s", sheetName, filePath)
		}
		sheet = s
	}

	return convertSheetToDataFrame(sheet)
}

// convertSheetToDataFrame 将xlsx.Sheet转换为dataframe.DataFrame, 第一行为标题行
func convertSheetToDataFrame(sheet *xlsx.Sheet) (dataframe.DataFrame, error) {
	if len(sheet.Rows) == 0 {
		return dataframe.DataFrame{}, fmt.Errorf("工作表 %s 为空", sheet.Name)
	}

	var headers []string
	for _, cell := range sheet.Rows[0].Cells {
		headers = append(headers, strings.TrimSpace(cell.Value))
	}

	columns := make([][]string, len(headers))
	for i := range columns {
		columns[i] = make([]string, 0, len(sheet.Rows)-1)
	}

	for _, row := range sheet.Rows[1:] {
		if row == nil {
			continue
		}
		for i := range headers {
			value := ""
			if i < len(row.Cells) && row.Cells[i] != nil {
				value = row.Cells[i].Value
			}
			columns[i] = append(columns[i], value)
		}
	}

	seriesList := make([]series.Series, len(headers))
	for i, colName := range headers {
		seriesList[i] = series.New(columns[i], series.String, colName)
	}

	df := dataframe.New(seriesList...)
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("转换工作表 %s 失败: %w", sheet.Name, df.Err)
	}
	return df, nil
}

// ProcessData 清洗数据:
// 缺失值填 0, Production 去掉哨兵字符后转为数值列
func ProcessData(df dataframe.DataFrame, dcfg *config.DataConfig) (dataframe.DataFrame, error) {
	cols := dcfg.Columns
	for _, name := range []string{cols.Region, cols.SubRegion, cols.Commodity, cols.Production} {
		if !utils.HasColumn(df, name) {
			return dataframe.DataFrame{}, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}

	filled := make([]series.Series, 0, df.Ncol())
	for _, name := range df.Names() {
		if name == cols.Production {
			continue
		}
		filled = append(filled, series.New(fillMissing(df.Col(name).Records()), series.String, name))
	}
	for _, s := range filled {
		df = df.Mutate(s)
	}

	production, err := parseProduction(df.Col(cols.Production).Records(), dcfg.GetSentinels())
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("column %s: %w", cols.Production, err)
	}
	df = df.Mutate(series.New(production, series.Float, cols.Production))
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("清洗数据失败: %w", df.Err)
	}

	return df, nil
}

func isMissing(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || v == "NaN"
}

func fillMissing(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		if isMissing(v) {
			out[i] = MissingValue
			continue
		}
		out[i] = v
	}
	return out
}

// parseProduction 去掉哨兵字符, 空值视为 0
func parseProduction(values []string, sentinels []string) ([]float64, error) {
	out := make([]float64, len(values))
	for i, raw := range values {
		if isMissing(raw) {
			continue
		}
		v := raw
		for _, s := range sentinels {
			if s != "" {
				v = strings.ReplaceAll(v, s, "")
			}
		}
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("%w: row %d %q", ErrNotNumeric, i+1, raw)
		}
		out[i] = f
	}
	return out, nil
}
