package model

import (
	"bytes"
	"fmt"
	"time"
)

// LocalTime 以 "YYYY-MM-DD HH:MM:SS" 格式序列化时间，用于列表项等面向前端的输出。
// 零值序列化为 null。
type LocalTime time.Time

const timeFormat = "2006-01-02 15:04:05"

// MarshalJSON 实现 json.Marshaler。
func (t LocalTime) MarshalJSON() ([]byte, error) {
	if time.Time(t).IsZero() {
		return []byte("null"), nil
	}
	return []byte(fmt.Sprintf("%q", time.Time(t).Format(timeFormat))), nil
}

// UnmarshalJSON 实现 json.Unmarshaler，按本地时区解析。
func (t *LocalTime) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) || bytes.Equal(data, []byte(`""`)) {
		*t = LocalTime{}
		return nil
	}
	parsed, err := time.ParseInLocation(`"`+timeFormat+`"`, string(data), time.Local)
	if err != nil {
		return fmt.Errorf("invalid time %s: %w", data, err)
	}
	*t = LocalTime(parsed)
	return nil
}

// String 返回格式化后的时间。
func (t LocalTime) String() string {
	return time.Time(t).Format(timeFormat)
}
