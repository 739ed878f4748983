// Package codec 提供进程内共享的 JSON 编解码器及自定义类型转换。
package codec

import (
	"bytes"
	"encoding/json"
	"io"
	"sync"
)

// Codec 统一的 JSON 编解码器，创建后只读，可并发使用。
type Codec struct {
	escapeHTML bool
	indent     string
	useNumber  bool

	prettyOnce sync.Once
	pretty     *Codec
}

// Option 配置 Codec。
type Option func(*Codec)

// WithEscapeHTML 控制是否转义 <、>、&。默认不转义。
func WithEscapeHTML(escape bool) Option {
	return func(c *Codec) {
		c.escapeHTML = escape
	}
}

// WithIndent 设置缩进，用于调试输出。
func WithIndent(indent string) Option {
	return func(c *Codec) {
		c.indent = indent
	}
}

// WithUseNumber 解码到 any 时保留数字精度。默认开启。
func WithUseNumber(use bool) Option {
	return func(c *Codec) {
		c.useNumber = use
	}
}

// New 创建 Codec。
func New(opts ...Option) *Codec {
	c := &Codec{useNumber: true}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Marshal 编码为 JSON，不带结尾换行。
func (c *Codec) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.Encode(&buf, v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Encode 将 v 写入 w。
func (c *Codec) Encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(c.escapeHTML)
	if c.indent != "" {
		enc.SetIndent("", c.indent)
	}
	return enc.Encode(v)
}

// Unmarshal 解码 JSON。
func (c *Codec) Unmarshal(data []byte, v any) error {
	return c.Decode(bytes.NewReader(data), v)
}

// Decode 从 r 读取一个 JSON 值。空输入返回 io.EOF。
func (c *Codec) Decode(r io.Reader, v any) error {
	dec := json.NewDecoder(r)
	if c.useNumber {
		dec.UseNumber()
	}
	return dec.Decode(v)
}

// Clone 通过一次编码再解码把 src 深拷贝到 dst，二者不共享任何引用。
func (c *Codec) Clone(src, dst any) error {
	data, err := c.Marshal(src)
	if err != nil {
		return err
	}
	return c.Unmarshal(data, dst)
}

// Pretty 返回带缩进的同配置 Codec，首次调用时创建。
func (c *Codec) Pretty() *Codec {
	c.prettyOnce.Do(func() {
		c.pretty = &Codec{
			escapeHTML: c.escapeHTML,
			indent:     "  ",
			useNumber:  c.useNumber,
		}
	})
	return c.pretty
}
