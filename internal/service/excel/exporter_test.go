package excel

import (
	"testing"

	"github.com/mirror173/shop-analyzer/internal/analyzer"
	"github.com/mirror173/shop-analyzer/internal/model"
	"github.com/mirror173/shop-analyzer/internal/schema"
)

func salesRecord(product, size string, qty, amount, fee float64, date string) model.Record {
	rec := model.Record{
		"商品中文名称": model.NewText(product),
		"商品数量":   model.NewNumber(qty),
		"商品总金额":  model.NewNumber(amount),
		"运费":     model.NewNumber(fee),
	}
	if size != "" {
		rec["尺寸"] = model.NewText(size)
	}
	if date != "" {
		rec["付款时间"] = model.CoerceCell(date)
	}
	return rec
}

func salesRoleMapping() schema.RoleMapping {
	return schema.RoleMapping{
		schema.RoleProduct:  "商品中文名称",
		schema.RoleSize:     "尺寸",
		schema.RoleQuantity: "商品数量",
		schema.RoleAmount:   "商品总金额",
		schema.RoleShipping: "运费",
		schema.RoleDate:     "付款时间",
	}
}

func TestExporter_Export(t *testing.T) {
	t.Parallel()

	records := []model.Record{
		salesRecord("连衣裙", "M", 2, 199.8, 10, "2024-05-01"),
		salesRecord("衬衫", "L", 1, 89.9, 0, "2024-06-02"),
	}
	bundle := analyzer.Analyze(records, salesRoleMapping(), analyzer.Options{
		TopN:          10,
		BaselineMonth: "2024-05",
		CurrentMonth:  "2024-06",
	})

	f, err := NewExporter().Export(bundle)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	defer f.Close()

	want := []string{"业绩概览", "产品业绩", "产品尺寸业绩", "尺寸分析", "月度对比", "运费分布", "每日趋势"}
	got := f.GetSheetList()
	have := make(map[string]bool, len(got))
	for _, name := range got {
		have[name] = true
	}
	for _, name := range want {
		if !have[name] {
			t.Fatalf("missing sheet %q in %v", name, got)
		}
	}
	// 未解析品类列时不应出现品类sheet
	if have["品类分析"] {
		t.Fatalf("unexpected 品类分析 sheet")
	}

	// 产品业绩首行为销售额最高的产品
	cell, err := f.GetCellValue("产品业绩", "A2")
	if err != nil {
		t.Fatalf("read cell: %v", err)
	}
	if cell != "连衣裙" {
		t.Fatalf("expected 连衣裙 first, got %q", cell)
	}

	header, err := f.GetCellValue("产品业绩", "A1")
	if err != nil {
		t.Fatalf("read header: %v", err)
	}
	if header != "产品名称" {
		t.Fatalf("unexpected header: %q", header)
	}
}

func TestExporter_NilBundle(t *testing.T) {
	t.Parallel()

	if _, err := NewExporter().Export(nil); err == nil {
		t.Fatalf("expected error for nil bundle")
	}
	if _, err := NewExporter().Export(&analyzer.Bundle{}); err == nil {
		t.Fatalf("expected error for empty bundle")
	}
}
