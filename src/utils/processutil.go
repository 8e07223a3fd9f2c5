package utils

import (
	"fmt"

	"github.com/go-gota/gota/dataframe"
	"github.com/xuri/excelize/v2"
)

func Contains[T comparable](slice []T, item T) bool {
	for _, v := range slice {
		if v == item {
			return true
		}
	}
	return false
}

// Unique 去重并保持首次出现的顺序
func Unique[T comparable](slice []T) []T {
	seen := make(map[T]struct{}, len(slice))
	out := make([]T, 0, len(slice))
	for _, v := range slice {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// 辅助函数：判断DataFrame是否有某列
func HasColumn(df dataframe.DataFrame, name string) bool {
	for _, n := range df.Names() {
		if n == name {
			return true
		}
	}
	return false
}

// SaveToExcel 将DataFrame写入xlsx, 第一行为列名
func SaveToExcel(df dataframe.DataFrame, filePath, sheetName string) error {
	f, err := WriteExcel(df, sheetName)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(filePath); err != nil {
		return fmt.Errorf("保存Excel文件失败: %w", err)
	}
	return nil
}

// WriteExcel 构建工作簿但不落盘, 调用方负责 Close
func WriteExcel(df dataframe.DataFrame, sheetName string) (*excelize.File, error) {
	f := excelize.NewFile()
	if sheetName == "" {
		sheetName = "Sheet1"
	}
	if sheetName != "Sheet1" {
		if err := f.SetSheetName("Sheet1", sheetName); err != nil {
			f.Close()
			return nil, fmt.Errorf("设置工作表名失败: %w", err)
		}
	}

	colNames := df.Names()
	for i, name := range colNames {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cell, name); err != nil {
			f.Close()
			return nil, fmt.Errorf("写入列名失败: %w", err)
		}
	}

	for rowIdx := 0; rowIdx < df.Nrow(); rowIdx++ {
		for colIdx, colName := range colNames {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			val := df.Col(colName).Val(rowIdx)
			if err := f.SetCellValue(sheetName, cell, val); err != nil {
				f.Close()
				return nil, fmt.Errorf("写入数据失败: %w", err)
			}
		}
	}

	return f, nil
}
