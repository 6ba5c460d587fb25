package pacing

import (
	"sort"
	"time"
)

// DateLayout 跨边界传递的日期格式，定长补零，可直接按字典序比较
const DateLayout = "2006-01-02"

// DaySet 日期集合（YYYY-MM-DD）
type DaySet map[string]struct{}

// NewDaySet 由日期列表构建集合
func NewDaySet(dates ...string) DaySet {
	set := make(DaySet, len(dates))
	for _, d := range dates {
		set.Add(d)
	}
	return set
}

// Add 加入日期，空串忽略
func (s DaySet) Add(date string) {
	if date != "" {
		s[date] = struct{}{}
	}
}

// Has 判断日期是否在集合中，nil 集合视为空
func (s DaySet) Has(date string) bool {
	_, ok := s[date]
	return ok
}

// Sorted 返回升序日期列表
func (s DaySet) Sorted() []string {
	out := make([]string, 0, len(s))
	for d := range s {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// ParseDate 解析 YYYY-MM-DD 为 UTC 零点的民用日期
// 只接受规范格式：解析后重新格式化必须与输入一致
func ParseDate(s string) (time.Time, bool) {
	t, err := time.Parse(DateLayout, s)
	if err != nil || t.Format(DateLayout) != s {
		return time.Time{}, false
	}
	return t, true
}

// ValidDate 判断是否为合法的 YYYY-MM-DD 日期
func ValidDate(s string) bool {
	_, ok := ParseDate(s)
	return ok
}

// FormatDate 按年月日分量格式化，不经过时区换算
func FormatDate(t time.Time) string {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Format(DateLayout)
}

// IsWeekend 周六或周日
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// IsSchoolDay 工作日且不在停课日集合内
func IsSchoolDay(date string, daysOff DaySet) bool {
	t, ok := ParseDate(date)
	if !ok {
		return false
	}
	return !IsWeekend(t) && !daysOff.Has(date)
}

// CountSchoolDays 统计 [start, end] 闭区间内的教学日数量
// 任一日期未设置、格式非法或 start > end 时返回 0
func CountSchoolDays(start, end string, daysOff DaySet) int {
	if start == "" || end == "" {
		return 0
	}
	from, ok := ParseDate(start)
	if !ok {
		return 0
	}
	to, ok := ParseDate(end)
	if !ok || to.Before(from) {
		return 0
	}

	count := 0
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if IsWeekend(d) {
			continue
		}
		if daysOff.Has(d.Format(DateLayout)) {
			continue
		}
		count++
	}
	return count
}

// maxSchoolDayScan 查找相邻教学日时的最大扫描天数，防止停课日配置异常导致死循环
const maxSchoolDayScan = 366

// NextSchoolDay 返回 date 之后的第一个教学日
func NextSchoolDay(date string, daysOff DaySet) (string, bool) {
	return stepSchoolDay(date, daysOff, 1)
}

// PreviousSchoolDay 返回 date 之前的第一个教学日
func PreviousSchoolDay(date string, daysOff DaySet) (string, bool) {
	return stepSchoolDay(date, daysOff, -1)
}

func stepSchoolDay(date string, daysOff DaySet, step int) (string, bool) {
	t, ok := ParseDate(date)
	if !ok {
		return "", false
	}
	for i := 0; i < maxSchoolDayScan; i++ {
		t = t.AddDate(0, 0, step)
		s := t.Format(DateLayout)
		if !IsWeekend(t) && !daysOff.Has(s) {
			return s, true
		}
	}
	return "", false
}
