package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Date 兼容服务端的秒级时间戳与 RFC3339 字符串，编码时统一输出 RFC3339。
type Date struct {
	time.Time
}

// NewDate 包装 time.Time。
func NewDate(t time.Time) Date {
	return Date{Time: t}
}

// MarshalJSON 零值编码为 null。
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Time.Format(time.RFC3339Nano))
}

// UnmarshalJSON 接受 null、数字（秒）与时间字符串。
func (d *Date) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		d.Time = time.Time{}
		return nil
	}
	if data[0] != '"' {
		return d.parseUnix(string(data))
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == "" {
		d.Time = time.Time{}
		return nil
	}
	if _, err := strconv.ParseFloat(raw, 64); err == nil {
		return d.parseUnix(raw)
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.000000Z0700", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			d.Time = t
			return nil
		}
	}
	return fmt.Errorf("codec: 无法解析时间 %q", raw)
}

func (d *Date) parseUnix(raw string) error {
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("codec: 无法解析时间戳 %q: %w", raw, err)
	}
	sec := int64(f)
	nsec := int64((f - float64(sec)) * float64(time.Second))
	d.Time = time.Unix(sec, nsec)
	return nil
}
