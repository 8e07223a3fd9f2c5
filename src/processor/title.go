package processor

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// FormatTotal 千分位格式, 整数不带小数部分: 1234567 -> "1,234,567", 1234.5 -> "1,234.5"
func FormatTotal(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) >= math.MaxInt64 {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	intStr, fracStr, _ := strings.Cut(strconv.FormatFloat(math.Abs(v), 'f', -1, 64), ".")
	n, err := strconv.ParseInt(intStr, 10, 64)
	if err != nil {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}

	out := printer.Sprintf("%d", n)
	if fracStr != "" {
		out += "." + fracStr
	}
	if v < 0 {
		out = "-" + out
	}
	return out
}

func TotalAnnotation(total float64) string {
	return "Total Production: " + FormatTotal(total)
}

func RegionShareTitle(commodity string) string {
	return "Percentage of Regions Production of " + commodity + " commodity"
}

func SubRegionBarTitle(region, commodity string) string {
	return "Sub-Regions Production of " + region + " for " + commodity + " commodities"
}

// SubRegionShareTitle 只包含地区, 不包含商品名
func SubRegionShareTitle(region string) string {
	return "Percentage of Sub-Regions Production of " + region
}
