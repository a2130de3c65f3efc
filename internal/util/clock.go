package util

import (
	"time"

	"github.com/google/uuid"
)

// Clock 提供 createTime/actionTime 等时间戳
type Clock func() time.Time

// SystemClock 毫秒精度的 UTC 时间，与文档存储的时间精度一致
func SystemClock() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// FixedClock 返回固定时间，用于测试与数据回放
func FixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

// IDGenerator 生成文档主键
type IDGenerator func() string

func NewUUID() string {
	return uuid.New().String()
}
