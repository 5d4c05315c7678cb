package analyzer

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"

	"github.com/mirror173/shop-analyzer/internal/model"
	"github.com/mirror173/shop-analyzer/internal/schema"
)

// DailyStat 单日汇总
type DailyStat struct {
	Date          string      `json:"date"`
	Revenue       float64     `json:"revenue"`
	Quantity      float64     `json:"quantity"`
	Shipping      float64     `json:"shipping"`
	Orders        int         `json:"orders"`
	AvgOrderValue model.Ratio `json:"avgOrderValue"`
}

// DailyTrend 每日趋势
// 日期无法解析的记录归入Unknown桶：不进入日期序列但计入合计
type DailyTrend struct {
	Days    []DailyStat `json:"days"`
	Unknown *DailyStat  `json:"unknown,omitempty"`
	Totals  DailyStat   `json:"totals"`
}

// dailyAccum 单日累加器
type dailyAccum struct {
	revenue  float64
	quantity float64
	shipping float64
	orders   map[string]struct{}
}

func newDailyAccum() *dailyAccum {
	return &dailyAccum{orders: make(map[string]struct{})}
}

func (a *dailyAccum) add(rec model.Record, mapping schema.RoleMapping) {
	a.revenue += mapping.Number(rec, schema.RoleAmount)
	a.quantity += mapping.Number(rec, schema.RoleQuantity)
	a.shipping += mapping.Number(rec, schema.RoleShipping)
	if id := mapping.Text(rec, schema.RoleOrder); id != "" {
		a.orders[id] = struct{}{}
	}
}

func (a *dailyAccum) stat(date string) DailyStat {
	return DailyStat{
		Date:          date,
		Revenue:       model.Round2(a.revenue),
		Quantity:      model.Round2(a.quantity),
		Shipping:      model.Round2(a.shipping),
		Orders:        len(a.orders),
		AvgOrderValue: model.RatioOf(a.revenue, float64(len(a.orders))),
	}
}

// DailyRollup 按自然日汇总
// 日期角色未识别时返回(nil, false)
func DailyRollup(records []model.Record, mapping schema.RoleMapping) (*DailyTrend, bool) {
	if !mapping.Has(schema.RoleDate) {
		return nil, false
	}

	byDay := make(map[string]*dailyAccum)
	unknown := newDailyAccum()
	totals := newDailyAccum()
	unknownCount := 0

	for _, rec := range records {
		totals.add(rec, mapping)

		t, ok := mapping.Date(rec, schema.RoleDate)
		if !ok {
			unknown.add(rec, mapping)
			unknownCount++
			continue
		}

		day := t.Format("2006-01-02")
		acc, exists := byDay[day]
		if !exists {
			acc = newDailyAccum()
			byDay[day] = acc
		}
		acc.add(rec, mapping)
	}

	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)

	trend := &DailyTrend{
		Days:   make([]DailyStat, 0, len(days)),
		Totals: totals.stat("合计"),
	}
	for _, day := range days {
		trend.Days = append(trend.Days, byDay[day].stat(day))
	}
	if unknownCount > 0 {
		stat := unknown.stat("未知")
		trend.Unknown = &stat
	}

	return trend, true
}

// ShippingBucket 运费分布的一个区间
// 首个区间为[0,0]（免运费），其余为左开右闭(Min,Max]，末档上界为+Inf
type ShippingBucket struct {
	Label string  `json:"label"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Count int     `json:"count"`
}

// shippingBins 固定分布区间，顺序与数据无关
func shippingBins() []ShippingBucket {
	return []ShippingBucket{
		{Label: "免运费", Min: 0, Max: 0},
		{Label: "0-10元", Min: 0, Max: 10},
		{Label: "10-20元", Min: 10, Max: 20},
		{Label: "20-50元", Min: 20, Max: 50},
		{Label: "50-100元", Min: 50, Max: 100},
		{Label: "100元以上", Min: 100, Max: math.Inf(1)},
	}
}

// ShippingStats 运费描述统计
type ShippingStats struct {
	Total     float64     `json:"total"`
	Mean      float64     `json:"mean"`
	Median    float64     `json:"median"`
	P90       float64     `json:"p90"`
	PaidCount int         `json:"paidCount"` // 有运费的记录数
	Records   int         `json:"records"`
	FeeShare  model.Ratio `json:"feeShare"` // 运费占销售额比例(%)
}

// ShippingDistribution 运费分布结果
// 空桶保留，计数为0，顺序固定
type ShippingDistribution struct {
	Buckets []ShippingBucket `json:"buckets"`
	Stats   ShippingStats    `json:"stats"`
}

// DistributeShipping 将运费落入固定区间并计算描述统计
// 运费角色未识别时返回(nil, false)；空数据集返回全0桶
func DistributeShipping(records []model.Record, mapping schema.RoleMapping) (*ShippingDistribution, bool) {
	if !mapping.Has(schema.RoleShipping) {
		return nil, false
	}

	buckets := shippingBins()
	fees := make([]float64, 0, len(records))
	var totalFee, totalRevenue float64
	paid := 0

	for _, rec := range records {
		fee := mapping.Number(rec, schema.RoleShipping)
		totalFee += fee
		totalRevenue += mapping.Number(rec, schema.RoleAmount)
		fees = append(fees, fee)

		if fee > 0 {
			paid++
		}

		idx := bucketIndex(buckets, fee)
		buckets[idx].Count++
	}

	dist := &ShippingDistribution{
		Buckets: buckets,
		Stats: ShippingStats{
			Total:     model.Round2(totalFee),
			PaidCount: paid,
			Records:   len(records),
			FeeShare:  scaleRatio(model.RatioOf(totalFee, totalRevenue), 100),
		},
	}

	if len(fees) > 0 {
		data := stats.Float64Data(fees)
		if mean, err := stats.Mean(data); err == nil {
			dist.Stats.Mean = model.Round2(mean)
		}
		if median, err := stats.Median(data); err == nil {
			dist.Stats.Median = model.Round2(median)
		}
		if p90, err := stats.Percentile(data, 90); err == nil {
			dist.Stats.P90 = model.Round2(p90)
		}
	}

	return dist, true
}

// bucketIndex 选择运费所属区间
// 0及负数归免运费档，其余取首个满足 fee<=Max 的区间
func bucketIndex(buckets []ShippingBucket, fee float64) int {
	if fee <= 0 {
		return 0
	}
	for i := 1; i < len(buckets); i++ {
		if fee <= buckets[i].Max {
			return i
		}
	}
	return len(buckets) - 1
}
