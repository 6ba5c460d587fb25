package pacing

// CoverageStatus 章节课时覆盖状态
type CoverageStatus string

const (
	CoverageUnset        CoverageStatus = "unset"
	CoverageEnough       CoverageStatus = "enough"
	CoverageInsufficient CoverageStatus = "insufficient"
)

// Coverage 分配教学日与课时数的比较结果
type Coverage struct {
	AllocatedDays int            `json:"allocated_days"`
	LessonCount   int            `json:"lesson_count"`
	Status        CoverageStatus `json:"status"`
	Color         string         `json:"color,omitempty"` // green | red
}

// SectionCoverage 计算章节覆盖情况：allocatedDays >= lessonCount 即为充足
func SectionCoverage(s SectionSchedule, daysOff DaySet) Coverage {
	c := Coverage{LessonCount: s.LessonCount, Status: CoverageUnset}
	if !s.HasRange() {
		return c
	}
	c.AllocatedDays = CountSchoolDays(s.StartDate, s.EndDate, daysOff)
	if c.AllocatedDays >= c.LessonCount {
		c.Status = CoverageEnough
		c.Color = "green"
	} else {
		c.Status = CoverageInsufficient
		c.Color = "red"
	}
	return c
}

// UnitCoverage 单元下各章节覆盖情况，顺序与 Sections 一致
func UnitCoverage(u UnitSchedule, daysOff DaySet) []Coverage {
	out := make([]Coverage, len(u.Sections))
	for i, s := range u.Sections {
		out[i] = SectionCoverage(s, daysOff)
	}
	return out
}
