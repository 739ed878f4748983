// Package query 构造列表接口的分页、排序、字段与条件参数。
package query

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/dnslin/minapp-go/core/codec"
)

// Query 列表查询参数。零值可直接使用，表示不带任何条件。
type Query struct {
	where   *Where
	limit   int
	offset  int
	orderBy []string
	keys    []string
	expand  []string
}

// New 创建空查询。
func New() *Query {
	return &Query{}
}

// All 查询全部记录，等价于 New()。
func All() *Query {
	return New()
}

// Put 设置查询条件，多次调用以 $and 合并。
func (q *Query) Put(w *Where) *Query {
	if w.Empty() {
		return q
	}
	if q.where.Empty() {
		q.where = w
	} else {
		q.where = And(q.where, w)
	}
	return q
}

// Limit 设置返回条数，<= 0 表示使用服务端默认值。
func (q *Query) Limit(n int) *Query {
	q.limit = n
	return q
}

// Offset 设置偏移量。
func (q *Query) Offset(n int) *Query {
	q.offset = n
	return q
}

// OrderBy 设置排序字段，"-field" 表示倒序。
func (q *Query) OrderBy(keys ...string) *Query {
	q.orderBy = append(q.orderBy, keys...)
	return q
}

// Keys 设置返回字段，"-field" 表示排除。
func (q *Query) Keys(keys ...string) *Query {
	q.keys = append(q.keys, keys...)
	return q
}

// Expand 展开 pointer 类型字段。
func (q *Query) Expand(keys ...string) *Query {
	q.expand = append(q.expand, keys...)
	return q
}

// Values 编码为 URL 查询参数，where 使用共享 Codec 序列化。
func (q *Query) Values(c *codec.Codec) (url.Values, error) {
	vals := url.Values{}
	if q == nil {
		return vals, nil
	}
	if !q.where.Empty() {
		if c == nil {
			c = codec.New()
		}
		data, err := c.Marshal(q.where)
		if err != nil {
			return nil, err
		}
		vals.Set("where", string(data))
	}
	if q.limit > 0 {
		vals.Set("limit", strconv.Itoa(q.limit))
	}
	if q.offset > 0 {
		vals.Set("offset", strconv.Itoa(q.offset))
	}
	if len(q.orderBy) > 0 {
		vals.Set("order_by", strings.Join(q.orderBy, ","))
	}
	if len(q.keys) > 0 {
		vals.Set("keys", strings.Join(q.keys, ","))
	}
	if len(q.expand) > 0 {
		vals.Set("expand", strings.Join(q.expand, ","))
	}
	return vals, nil
}
