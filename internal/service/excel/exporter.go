package excel

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/mirror173/shop-analyzer/internal/analyzer"
)

// Exporter 分析结果Excel导出器
type Exporter struct{}

// NewExporter 创建导出器
func NewExporter() *Exporter {
	return &Exporter{}
}

// Export 将分析结果写入工作簿，每个结果表一个sheet
func (e *Exporter) Export(bundle *analyzer.Bundle) (*excelize.File, error) {
	if bundle == nil {
		return nil, fmt.Errorf("nothing to export")
	}

	f := excelize.NewFile()
	first := true

	addSheet := func(name string) error {
		if first {
			f.SetSheetName("Sheet1", name)
			first = false
			return nil
		}
		_, err := f.NewSheet(name)
		return err
	}

	if bundle.Overview != nil {
		if err := addSheet("业绩概览"); err != nil {
			return nil, err
		}
		e.writeOverviewSheet(f, "业绩概览", bundle.Overview)
	}

	if bundle.Products != nil {
		if err := addSheet("产品业绩"); err != nil {
			return nil, err
		}
		e.writeSummarySheet(f, "产品业绩", "产品名称", bundle.Products)
	}

	if bundle.ProductSizes != nil {
		if err := addSheet("产品尺寸业绩"); err != nil {
			return nil, err
		}
		e.writeSummarySheet(f, "产品尺寸业绩", "产品_尺寸", bundle.ProductSizes)
	}

	if bundle.Categories != nil {
		if err := addSheet("品类分析"); err != nil {
			return nil, err
		}
		e.writeSummarySheet(f, "品类分析", "品类", bundle.Categories)
	}

	if bundle.Sizes != nil {
		if err := addSheet("尺寸分析"); err != nil {
			return nil, err
		}
		e.writeSummarySheet(f, "尺寸分析", "尺寸", bundle.Sizes)
	}

	if bundle.Comparison != nil {
		if err := addSheet("月度对比"); err != nil {
			return nil, err
		}
		e.writeComparisonSheet(f, "月度对比", bundle.Comparison)
	}

	if bundle.Shipping != nil {
		if err := addSheet("运费分布"); err != nil {
			return nil, err
		}
		e.writeShippingSheet(f, "运费分布", bundle.Shipping)
	}

	if bundle.Daily != nil {
		if err := addSheet("每日趋势"); err != nil {
			return nil, err
		}
		e.writeDailySheet(f, "每日趋势", bundle.Daily)
	}

	if first {
		return nil, fmt.Errorf("nothing to export")
	}

	return f, nil
}

// headerStyle 表头样式
func headerStyle(f *excelize.File) int {
	style, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E2E8F0"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	return style
}

// writeHeader 写入表头行并套用样式
func writeHeader(f *excelize.File, sheet string, headers []string) {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}
	f.SetRowStyle(sheet, 1, 1, headerStyle(f))
}

// setRow 写入一行数据
func setRow(f *excelize.File, sheet string, row int, values []interface{}) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		f.SetCellValue(sheet, cell, v)
	}
}

func (e *Exporter) writeOverviewSheet(f *excelize.File, sheet string, overview *analyzer.DatasetSummary) {
	writeHeader(f, sheet, []string{"指标", "数值"})

	rows := [][]interface{}{
		{"记录数", overview.Records},
		{"总销售额", overview.Revenue},
		{"总销量", overview.Quantity},
		{"总运费", overview.Shipping},
		{"净收入", overview.NetRevenue},
		{"总订单数", overview.Orders},
		{"产品数量", overview.Products},
		{"尺寸数量", overview.Sizes},
		{"平均客单价", overview.AvgOrderValue.String()},
		{"平均单价", overview.AvgUnitPrice.String()},
		{"运费占比(%)", overview.ShippingRatio.String()},
	}
	for i, row := range rows {
		setRow(f, sheet, i+2, row)
	}
}

func (e *Exporter) writeSummarySheet(f *excelize.File, sheet, keyHeader string, summary *analyzer.Summary) {
	writeHeader(f, sheet, []string{
		keyHeader, "销售额", "销售额占比(%)", "销量", "销量占比(%)",
		"运费", "订单数", "产品数", "平均单价", "平均订单金额", "运费占比(%)",
	})

	for i, row := range summary.Rows {
		setRow(f, sheet, i+2, []interface{}{
			row.Key, row.Revenue, row.RevenueShare, row.Quantity, row.QuantityShare,
			row.Shipping, row.Orders, row.Products,
			row.AvgUnitPrice.String(), row.AvgOrderValue.String(), row.ShippingRatio.String(),
		})
	}
}

func (e *Exporter) writeComparisonSheet(f *excelize.File, sheet string, comparison *analyzer.Comparison) {
	writeHeader(f, sheet, []string{
		"产品", "上月销售额", "本月销售额", "销售额变化", "销售额变化率(%)",
		"上月销量", "本月销量", "销量变化", "销量变化率(%)", "状态",
	})

	for i, row := range comparison.Rows {
		status := ""
		if row.New {
			status = "新增"
		} else if row.Discontinued {
			status = "下架"
		}
		setRow(f, sheet, i+2, []interface{}{
			row.Key,
			row.BaselineRevenue, row.CurrentRevenue, row.RevenueDelta, row.RevenueGrowth.String(),
			row.BaselineQuantity, row.CurrentQuantity, row.QuantityDelta, row.QuantityGrowth.String(),
			status,
		})
	}
}

func (e *Exporter) writeShippingSheet(f *excelize.File, sheet string, dist *analyzer.ShippingDistribution) {
	writeHeader(f, sheet, []string{"运费区间", "订单数"})

	row := 2
	for _, bucket := range dist.Buckets {
		setRow(f, sheet, row, []interface{}{bucket.Label, bucket.Count})
		row++
	}

	row++
	statRows := [][]interface{}{
		{"总运费", dist.Stats.Total},
		{"平均运费", dist.Stats.Mean},
		{"运费中位数", dist.Stats.Median},
		{"运费P90", dist.Stats.P90},
		{"有运费记录数", dist.Stats.PaidCount},
		{"运费占比(%)", dist.Stats.FeeShare.String()},
	}
	for _, r := range statRows {
		setRow(f, sheet, row, r)
		row++
	}
}

func (e *Exporter) writeDailySheet(f *excelize.File, sheet string, trend *analyzer.DailyTrend) {
	writeHeader(f, sheet, []string{"日期", "销售额", "销量", "订单数", "运费", "平均客单价"})

	row := 2
	for _, day := range trend.Days {
		setRow(f, sheet, row, []interface{}{
			day.Date, day.Revenue, day.Quantity, day.Orders, day.Shipping, day.AvgOrderValue.String(),
		})
		row++
	}
	if trend.Unknown != nil {
		setRow(f, sheet, row, []interface{}{
			trend.Unknown.Date, trend.Unknown.Revenue, trend.Unknown.Quantity,
			trend.Unknown.Orders, trend.Unknown.Shipping, trend.Unknown.AvgOrderValue.String(),
		})
		row++
	}
	setRow(f, sheet, row, []interface{}{
		trend.Totals.Date, trend.Totals.Revenue, trend.Totals.Quantity,
		trend.Totals.Orders, trend.Totals.Shipping, trend.Totals.AvgOrderValue.String(),
	})
}
