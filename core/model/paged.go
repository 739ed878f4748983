package model

import (
	"errors"
	"iter"

	"github.com/dnslin/minapp-go/core/codec"
)

// ErrPagedListSealed 只读列表已构造完成，拒绝再次写入。
var ErrPagedListSealed = errors.New("model: PagedList 为只读，禁止修改")

// pageCodec 与 httpclient 默认配置一致，条目拷贝和 JSON 编解码都经过它。
var pageCodec = codec.New()

// Meta 分页元数据。
type Meta struct {
	Limit      int    `json:"limit"`
	Offset     int    `json:"offset"`
	Next       string `json:"next,omitempty"`
	Previous   string `json:"previous,omitempty"`
	TotalCount int64  `json:"total_count"`
}

// Page 列表接口的原始响应，解码后应立即调用 ReadOnly。
type Page[T any] struct {
	Meta    Meta `json:"meta"`
	Objects []T  `json:"objects"`
}

// ReadOnly 深拷贝出只读视图，之后修改 Page 不会影响返回值。
func (p *Page[T]) ReadOnly() *PagedList[T] {
	if p == nil {
		return &PagedList[T]{sealed: true}
	}
	return &PagedList[T]{
		meta:   p.Meta,
		items:  cloneItems(p.Objects),
		sealed: true,
	}
}

// PagedList 一页结果的只读视图。
type PagedList[T any] struct {
	meta   Meta
	items  []T
	sealed bool
}

// Len 当前页条数。
func (l *PagedList[T]) Len() int {
	if l == nil {
		return 0
	}
	return len(l.items)
}

// At 返回第 i 条的深拷贝。
func (l *PagedList[T]) At(i int) T {
	return cloneItem(l.items[i])
}

// Items 返回全部条目的深拷贝，元素内的 map 和切片也不与列表共享。
func (l *PagedList[T]) Items() []T {
	if l == nil {
		return nil
	}
	return cloneItems(l.items)
}

// All 按顺序遍历条目，每条都是深拷贝。
func (l *PagedList[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		if l == nil {
			return
		}
		for i, item := range l.items {
			if !yield(i, cloneItem(item)) {
				return
			}
		}
	}
}

// Meta 分页元数据。
func (l *PagedList[T]) Meta() Meta {
	if l == nil {
		return Meta{}
	}
	return l.meta
}

// TotalCount 满足条件的总条数。
func (l *PagedList[T]) TotalCount() int64 {
	return l.Meta().TotalCount
}

// HasNext 是否还有下一页。
func (l *PagedList[T]) HasNext() bool {
	return l.Meta().Next != ""
}

// MarshalJSON 以 {"meta":..., "objects":[...]} 编码。
func (l *PagedList[T]) MarshalJSON() ([]byte, error) {
	page := Page[T]{Meta: l.Meta(), Objects: l.Items()}
	if page.Objects == nil {
		page.Objects = []T{}
	}
	return pageCodec.Marshal(page)
}

// UnmarshalJSON 只允许写入尚未构造的零值，已构造的列表返回 ErrPagedListSealed。
func (l *PagedList[T]) UnmarshalJSON(data []byte) error {
	if l.sealed {
		return ErrPagedListSealed
	}
	var page Page[T]
	if err := pageCodec.Unmarshal(data, &page); err != nil {
		return err
	}
	*l = *page.ReadOnly()
	return nil
}

// cloneItem 无法经 JSON 往返的类型退化为浅拷贝。
func cloneItem[T any](item T) T {
	var out T
	if err := pageCodec.Clone(item, &out); err != nil {
		return item
	}
	return out
}

func cloneItems[T any](items []T) []T {
	if items == nil {
		return nil
	}
	out := make([]T, len(items))
	for i, item := range items {
		out[i] = cloneItem(item)
	}
	return out
}
