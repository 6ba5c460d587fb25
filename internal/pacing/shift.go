package pacing

import "math"

// ShiftForward 新增停课日后，将 >= from 的章节与单元日期后移一个教学日
// daysOff 应已包含新增的停课日；返回是否有日期变化
func ShiftForward(doc SavedUnitSchedule, from string, daysOff DaySet) (SavedUnitSchedule, bool) {
	return shiftDates(doc, func(d string) bool { return d >= from }, func(d string) (string, bool) {
		return NextSchoolDay(d, daysOff)
	})
}

// ShiftBack 删除停课日后，将 > after 的章节与单元日期前移一个教学日
// daysOff 应已移除被删除的停课日
func ShiftBack(doc SavedUnitSchedule, after string, daysOff DaySet) (SavedUnitSchedule, bool) {
	return shiftDates(doc, func(d string) bool { return d > after }, func(d string) (string, bool) {
		return PreviousSchoolDay(d, daysOff)
	})
}

func shiftDates(doc SavedUnitSchedule, match func(string) bool, step func(string) (string, bool)) (SavedUnitSchedule, bool) {
	changed := false
	move := func(d string) string {
		if d == "" || !match(d) {
			return d
		}
		next, ok := step(d)
		if !ok {
			return d
		}
		changed = true
		return next
	}

	out := doc
	out.Sections = make([]SavedSection, len(doc.Sections))
	for i, s := range doc.Sections {
		s.StartDate = move(s.StartDate)
		s.EndDate = move(s.EndDate)
		out.Sections[i] = s
	}
	out.StartDate = move(doc.StartDate)
	out.EndDate = move(doc.EndDate)
	return out, changed
}

// WeekAlignedOffset 两个起始日之间的天数差，取整到整周，平移后星期不变
func WeekAlignedOffset(fromStart, toStart string) (int, bool) {
	from, ok := ParseDate(fromStart)
	if !ok {
		return 0, false
	}
	to, ok := ParseDate(toStart)
	if !ok {
		return 0, false
	}
	days := int(math.Round(to.Sub(from).Hours() / 24))
	weeks := int(math.Round(float64(days) / 7))
	return weeks * 7, true
}

// Realign 所有已设置的日期平移 offsetDays 天，落在周末或停课日的顺延到下一个教学日
// 顺延单调不减，原本 start <= end 的区间平移后仍然成立
func Realign(doc SavedUnitSchedule, offsetDays int, daysOff DaySet) SavedUnitSchedule {
	out, _ := shiftDates(doc, func(string) bool { return true }, func(d string) (string, bool) {
		t, ok := ParseDate(d)
		if !ok {
			return "", false
		}
		moved := FormatDate(t.AddDate(0, 0, offsetDays))
		if IsSchoolDay(moved, daysOff) {
			return moved, true
		}
		return NextSchoolDay(moved, daysOff)
	})
	return out
}
