package schema

import (
	"time"

	"github.com/mirror173/shop-analyzer/internal/model"
)

// Role 列的语义角色
type Role string

const (
	RoleOrder    Role = "order"    // 订单编号
	RoleShipping Role = "shipping" // 运费
	RoleAmount   Role = "amount"   // 销售额/金额
	RoleQuantity Role = "quantity" // 数量/销量
	RoleSize     Role = "size"     // 尺寸/规格
	RoleCategory Role = "category" // 品类/类目
	RoleProduct  Role = "product"  // 产品/商品名称
	RoleDate     Role = "date"     // 日期
)

// RoleMapping 角色到原始列名的映射
// 每个角色至多对应一列，识别失败的角色不出现在映射中
type RoleMapping map[Role]string

// Column 返回角色对应的列名
func (m RoleMapping) Column(role Role) (string, bool) {
	col, ok := m[role]
	return col, ok
}

// Has 判断角色是否已识别
func (m RoleMapping) Has(role Role) bool {
	_, ok := m[role]
	return ok
}

// Empty 判断是否没有任何角色被识别
func (m RoleMapping) Empty() bool {
	return len(m) == 0
}

// Value 按角色从记录取值，角色未识别时为Null
func (m RoleMapping) Value(rec model.Record, role Role) model.Value {
	col, ok := m[role]
	if !ok {
		return model.Null()
	}
	return rec.Get(col)
}

// Text 按角色取文本值
func (m RoleMapping) Text(rec model.Record, role Role) string {
	return m.Value(rec, role).AsString()
}

// Number 按角色取数值，无法解析按0处理
func (m RoleMapping) Number(rec model.Record, role Role) float64 {
	return m.Value(rec, role).AsFloat()
}

// Date 按角色取日期值
func (m RoleMapping) Date(rec model.Record, role Role) (time.Time, bool) {
	return m.Value(rec, role).AsDate()
}
