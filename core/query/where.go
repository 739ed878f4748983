package query

import (
	"encoding/json"

	"github.com/dnslin/minapp-go/core/codec"
)

const (
	opAnd = "$and"
	opOr  = "$or"
)

// Condition 单字段条件，编码为 {"key": {"$op": value}}。
type Condition struct {
	Key   string
	Op    string
	Value any
}

// MarshalJSON 实现条件编码。
func (c Condition) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]map[string]any{
		c.Key: {c.Op: c.Value},
	})
}

// WithinCircle 圆形范围，圆心与半径（千米）。
type WithinCircle struct {
	Center codec.GeoPoint
	Radius float64
}

// MarshalJSON 编码为 {"radius": r, "coordinates": [lng, lat]}。
func (w WithinCircle) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Radius      float64    `json:"radius"`
		Coordinates [2]float64 `json:"coordinates"`
	}{
		Radius:      w.Radius,
		Coordinates: [2]float64{w.Center.Longitude, w.Center.Latitude},
	})
}

// WithinRegion 以某点为中心的环形区域，距离单位为米。
type WithinRegion struct {
	Center      codec.GeoPoint
	MinDistance float64
	MaxDistance float64
}

// MarshalJSON 编码为 {"geometry": point, "min_distance": x, "max_distance": y}。
func (w WithinRegion) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Geometry    codec.GeoPoint `json:"geometry"`
		MinDistance float64        `json:"min_distance"`
		MaxDistance float64        `json:"max_distance"`
	}{w.Center, w.MinDistance, w.MaxDistance})
}

// Where 条件组合，默认以 $and 连接。
type Where struct {
	op    string
	nodes []json.Marshaler
}

// NewWhere 创建空条件。
func NewWhere() *Where {
	return &Where{op: opAnd}
}

// And 以 $and 组合多个条件组。
func And(ws ...*Where) *Where {
	return combine(opAnd, ws)
}

// Or 以 $or 组合多个条件组。
func Or(ws ...*Where) *Where {
	return combine(opOr, ws)
}

func combine(op string, ws []*Where) *Where {
	w := &Where{op: op}
	for _, item := range ws {
		if item != nil && !item.Empty() {
			w.nodes = append(w.nodes, item)
		}
	}
	return w
}

// Empty 是否无任何条件。
func (w *Where) Empty() bool {
	return w == nil || len(w.nodes) == 0
}

func (w *Where) add(key, op string, value any) *Where {
	w.nodes = append(w.nodes, Condition{Key: key, Op: op, Value: value})
	return w
}

// EqualTo 等于。
func (w *Where) EqualTo(key string, value any) *Where { return w.add(key, "$eq", value) }

// NotEqualTo 不等于。
func (w *Where) NotEqualTo(key string, value any) *Where { return w.add(key, "$ne", value) }

// LessThan 小于。
func (w *Where) LessThan(key string, value any) *Where { return w.add(key, "$lt", value) }

// LessThanOrEqualTo 小于等于。
func (w *Where) LessThanOrEqualTo(key string, value any) *Where { return w.add(key, "$lte", value) }

// GreaterThan 大于。
func (w *Where) GreaterThan(key string, value any) *Where { return w.add(key, "$gt", value) }

// GreaterThanOrEqualTo 大于等于。
func (w *Where) GreaterThanOrEqualTo(key string, value any) *Where {
	return w.add(key, "$gte", value)
}

// Contains 字符串包含。
func (w *Where) Contains(key, substr string) *Where { return w.add(key, "$contains", substr) }

// Matches 正则匹配。
func (w *Where) Matches(key, pattern string) *Where { return w.add(key, "$regex", pattern) }

// ContainedIn 字段值位于给定集合中。
func (w *Where) ContainedIn(key string, values any) *Where { return w.add(key, "$in", values) }

// NotContainedIn 字段值不在给定集合中。
func (w *Where) NotContainedIn(key string, values any) *Where { return w.add(key, "$nin", values) }

// ArrayContains 数组字段包含全部给定元素。
func (w *Where) ArrayContains(key string, values any) *Where { return w.add(key, "$all", values) }

// Exists 字段存在。
func (w *Where) Exists(key string) *Where { return w.add(key, "$exists", true) }

// NotExists 字段不存在。
func (w *Where) NotExists(key string) *Where { return w.add(key, "$exists", false) }

// IsNull 字段为 null。
func (w *Where) IsNull(key string) *Where { return w.add(key, "$isnull", true) }

// IsNotNull 字段不为 null。
func (w *Where) IsNotNull(key string) *Where { return w.add(key, "$isnull", false) }

// WithinCircle 点位于圆形范围内。
func (w *Where) WithinCircle(key string, center codec.GeoPoint, radius float64) *Where {
	return w.add(key, "$center", WithinCircle{Center: center, Radius: radius})
}

// WithinRegion 点位于以 center 为中心的环形区域内。
func (w *Where) WithinRegion(key string, center codec.GeoPoint, minDistance, maxDistance float64) *Where {
	return w.add(key, "$nearsphere", WithinRegion{Center: center, MinDistance: minDistance, MaxDistance: maxDistance})
}

// WithinPolygon 点位于多边形内。
func (w *Where) WithinPolygon(key string, polygon codec.GeoPolygon) *Where {
	return w.add(key, "$within", polygon)
}

// Include 多边形字段包含给定点。
func (w *Where) Include(key string, point codec.GeoPoint) *Where {
	return w.add(key, "$intersects", point)
}

// MarshalJSON 单个条件直接输出，多个条件以组合操作符包裹。
func (w *Where) MarshalJSON() ([]byte, error) {
	switch {
	case w.Empty():
		return []byte("{}"), nil
	case len(w.nodes) == 1 && w.op == opAnd:
		return json.Marshal(w.nodes[0])
	default:
		return json.Marshal(map[string][]json.Marshaler{w.op: w.nodes})
	}
}
