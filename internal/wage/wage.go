// Package wage 工资计算，纯函数，不依赖存储与时钟
package wage

import (
	"fmt"
	"time"
)

// Clock 一天中的时刻，单位分钟（0–1439）
type Clock int

const minutesPerDay = 24 * 60

// ParseClock 解析 "HH:MM"
func ParseClock(s string) (Clock, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("时间格式应为 HH:MM: %q", s)
	}
	return Clock(t.Hour()*60 + t.Minute()), nil
}

// ClockOf 取时间戳在其所在时区的时刻
func ClockOf(t time.Time) Clock {
	return Clock(t.Hour()*60 + t.Minute())
}

// FromDuration 由零点起的偏移量构造（datatypes.Time 的底层表示）
func FromDuration(d time.Duration) Clock {
	return Clock(int(d/time.Minute) % minutesPerDay)
}

// Duration 零点起的偏移量
func (c Clock) Duration() time.Duration { return time.Duration(c) * time.Minute }

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// ElapsedMinutes 两个时刻之间的分钟数，end 早于 start 视为跨零点，相等为 0
func ElapsedMinutes(start, end Clock) int {
	d := int(end) - int(start)
	if d < 0 {
		d += minutesPerDay
	}
	return d
}

// Compute 按时刻计算工资：
// (跨零点修正后的分钟数 − 休息分钟，下限 0) × 时薪 / 60 向下取整，再加交通费
func Compute(start, end Clock, breakMinutes int, hourlyRate, transportationFee int64) int64 {
	return amount(ElapsedMinutes(start, end), breakMinutes, hourlyRate, transportationFee)
}

// ComputeSpan 按绝对时间计算工资，不足一分钟的部分舍去；end 不晚于 start 时工时为 0
func ComputeSpan(start, end time.Time, breakMinutes int, hourlyRate, transportationFee int64) int64 {
	minutes := 0
	if end.After(start) {
		minutes = int(end.Sub(start) / time.Minute)
	}
	return amount(minutes, breakMinutes, hourlyRate, transportationFee)
}

// WorkedMinutes 扣除休息后的实际工作分钟数
func WorkedMinutes(elapsed, breakMinutes int) int {
	if breakMinutes < 0 {
		breakMinutes = 0
	}
	if w := elapsed - breakMinutes; w > 0 {
		return w
	}
	return 0
}

func amount(elapsed, breakMinutes int, hourlyRate, transportationFee int64) int64 {
	worked := int64(WorkedMinutes(elapsed, breakMinutes))
	return worked*hourlyRate/60 + transportationFee
}
