package analyzer

import (
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/mirror173/shop-analyzer/internal/model"
	"github.com/mirror173/shop-analyzer/internal/schema"
)

// ComparisonRow 两个周期同一分组键的对比
// 基期为0时增长率无定义，区别于0%（新增项不是零增长）
type ComparisonRow struct {
	Key              string      `json:"key"`
	BaselineRevenue  float64     `json:"baselineRevenue"`
	CurrentRevenue   float64     `json:"currentRevenue"`
	RevenueDelta     float64     `json:"revenueDelta"`
	RevenueGrowth    model.Ratio `json:"revenueGrowth"`
	BaselineQuantity float64     `json:"baselineQuantity"`
	CurrentQuantity  float64     `json:"currentQuantity"`
	QuantityDelta    float64     `json:"quantityDelta"`
	QuantityGrowth   model.Ratio `json:"quantityGrowth"`
	New              bool        `json:"new"`          // 仅出现在本期
	Discontinued     bool        `json:"discontinued"` // 仅出现在基期
}

// Comparison 两个周期的对比结果
// 键集合为两期键的并集，按主指标变化绝对值降序排列
type Comparison struct {
	HasRevenue  bool            `json:"hasRevenue"`
	HasQuantity bool            `json:"hasQuantity"`
	Rows        []ComparisonRow `json:"rows"`
}

// Compare 对比两份独立聚合的结果
// 两期缺失的一侧按0补齐；指标有效性取两期交集，
// 销售额和销量在交集中都不可用时对比无意义，返回nil
func Compare(baseline, current *Summary) *Comparison {
	if baseline == nil || current == nil {
		return nil
	}

	result := &Comparison{
		HasRevenue:  baseline.HasRevenue && current.HasRevenue,
		HasQuantity: baseline.HasQuantity && current.HasQuantity,
	}
	if !result.HasRevenue && !result.HasQuantity {
		return nil
	}

	baseRows := baseline.rowByKey()
	curRows := current.rowByKey()

	keys := make([]string, 0, len(baseRows)+len(curRows))
	seen := make(map[string]bool, len(baseRows)+len(curRows))
	for _, row := range baseline.Rows {
		if !seen[row.Key] {
			seen[row.Key] = true
			keys = append(keys, row.Key)
		}
	}
	for _, row := range current.Rows {
		if !seen[row.Key] {
			seen[row.Key] = true
			keys = append(keys, row.Key)
		}
	}

	for _, key := range keys {
		base, inBase := baseRows[key]
		cur, inCur := curRows[key]

		row := ComparisonRow{
			Key:          key,
			New:          !inBase,
			Discontinued: !inCur,
		}

		if result.HasRevenue {
			row.BaselineRevenue = base.Revenue
			row.CurrentRevenue = cur.Revenue
			row.RevenueDelta = model.Round2(cur.Revenue - base.Revenue)
			row.RevenueGrowth = model.GrowthRate(base.Revenue, cur.Revenue)
		}
		if result.HasQuantity {
			row.BaselineQuantity = base.Quantity
			row.CurrentQuantity = cur.Quantity
			row.QuantityDelta = model.Round2(cur.Quantity - base.Quantity)
			row.QuantityGrowth = model.GrowthRate(base.Quantity, cur.Quantity)
		}

		result.Rows = append(result.Rows, row)
	}

	primary := func(row ComparisonRow) float64 {
		if result.HasRevenue {
			return row.RevenueDelta
		}
		return row.QuantityDelta
	}
	sort.SliceStable(result.Rows, func(i, j int) bool {
		a, b := abs(primary(result.Rows[i])), abs(primary(result.Rows[j]))
		if a != b {
			return a > b
		}
		return result.Rows[i].Key < result.Rows[j].Key
	})

	return result
}

// CompareDatasets 对比两份独立数据集
// 两侧聚合互不共享状态，并行计算后在对比边界合并
func CompareDatasets(baseRecords []model.Record, baseMapping schema.RoleMapping,
	curRecords []model.Record, curMapping schema.RoleMapping, mode GroupMode) (*Comparison, bool) {

	var baseline, current *Summary
	var baseOK, curOK bool

	var g errgroup.Group
	g.Go(func() error {
		baseline, baseOK = Aggregate(baseRecords, baseMapping, mode)
		return nil
	})
	g.Go(func() error {
		current, curOK = Aggregate(curRecords, curMapping, mode)
		return nil
	})
	_ = g.Wait()

	if !baseOK || !curOK {
		return nil, false
	}

	comparison := Compare(baseline, current)
	if comparison == nil {
		return nil, false
	}
	return comparison, true
}

// ComparePeriods 在同一数据集内对比两个指定月份
// 月份由调用方显式给出（YYYY-MM），不从数据中隐式推断
func ComparePeriods(records []model.Record, mapping schema.RoleMapping,
	baselineMonth, currentMonth string, mode GroupMode) (*Comparison, bool) {

	byMonth, _, ok := SplitByMonth(records, mapping)
	if !ok {
		return nil, false
	}

	baseRecords, hasBase := byMonth[baselineMonth]
	curRecords, hasCur := byMonth[currentMonth]
	if !hasBase || !hasCur {
		return nil, false
	}

	return CompareDatasets(baseRecords, mapping, curRecords, mapping, mode)
}

// SplitByMonth 按日期角色将记录拆分到各月份（YYYY-MM）
// 无法解析日期的记录不参与任何月份；日期角色未识别时返回(nil, nil, false)
func SplitByMonth(records []model.Record, mapping schema.RoleMapping) (map[string][]model.Record, []string, bool) {
	if !mapping.Has(schema.RoleDate) {
		return nil, nil, false
	}

	byMonth := make(map[string][]model.Record)
	for _, rec := range records {
		t, ok := mapping.Date(rec, schema.RoleDate)
		if !ok {
			continue
		}
		key := t.Format("2006-01")
		byMonth[key] = append(byMonth[key], rec)
	}

	months := make([]string, 0, len(byMonth))
	for m := range byMonth {
		months = append(months, m)
	}
	sort.Strings(months)

	return byMonth, months, true
}

// LatestPeriods 返回数据集中最近的两个不同月份 (基期, 本期)
// 不足两个月份时ok为false；仅作为调用方的默认值来源
func LatestPeriods(records []model.Record, mapping schema.RoleMapping) (baseline, current string, ok bool) {
	_, months, hasDate := SplitByMonth(records, mapping)
	if !hasDate || len(months) < 2 {
		return "", "", false
	}
	return months[len(months)-2], months[len(months)-1], true
}

// NewKeys 仅出现在本期的行
func (c *Comparison) NewKeys() []ComparisonRow {
	return c.filter(func(row ComparisonRow) bool { return row.New })
}

// DiscontinuedKeys 仅出现在基期的行
func (c *Comparison) DiscontinuedKeys() []ComparisonRow {
	return c.filter(func(row ComparisonRow) bool { return row.Discontinued })
}

// Grown 两期都出现且主指标上升的行
func (c *Comparison) Grown() []ComparisonRow {
	return c.filter(func(row ComparisonRow) bool {
		return !row.New && !row.Discontinued && c.primaryDelta(row) > 0
	})
}

// Declined 两期都出现且主指标下降的行
func (c *Comparison) Declined() []ComparisonRow {
	return c.filter(func(row ComparisonRow) bool {
		return !row.New && !row.Discontinued && c.primaryDelta(row) < 0
	})
}

func (c *Comparison) primaryDelta(row ComparisonRow) float64 {
	if c.HasRevenue {
		return row.RevenueDelta
	}
	return row.QuantityDelta
}

func (c *Comparison) filter(keep func(ComparisonRow) bool) []ComparisonRow {
	if c == nil {
		return nil
	}
	result := make([]ComparisonRow, 0)
	for _, row := range c.Rows {
		if keep(row) {
			result = append(result, row)
		}
	}
	return result
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
