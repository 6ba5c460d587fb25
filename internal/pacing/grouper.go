package pacing

import (
	"sort"
	"strconv"
	"strings"
)

// GradeOrder 年级排序规则
// 先修年级（如查看 Algebra 1 时的 8 年级）按列出顺序排在本年级之前
type GradeOrder struct {
	ViewGrade     string
	Prerequisites []string
}

// Rank 返回年级的排序名次
func (o GradeOrder) Rank(grade string) int {
	for i, g := range o.Prerequisites {
		if g == grade {
			return i
		}
	}
	return len(o.Prerequisites)
}

// SectionCount 章节及其课时数
type SectionCount struct {
	SectionID string `json:"section_id"`
	Count     int    `json:"count"`
}

// UnitGroup 分组后的单元
type UnitGroup struct {
	Key        UnitKey        `json:"unit_key"`
	Grade      string         `json:"grade"`
	UnitNumber int            `json:"unit_number"`
	UnitName   string         `json:"unit_name"`
	Sections   []SectionCount `json:"sections"` // 按首次出现顺序
}

// SectionCount 查询某章节课时数
func (g *UnitGroup) SectionCount(sectionID string) int {
	for _, s := range g.Sections {
		if s.SectionID == sectionID {
			return s.Count
		}
	}
	return 0
}

// LessonTotal 单元内课时总数
func (g *UnitGroup) LessonTotal() int {
	total := 0
	for _, s := range g.Sections {
		total += s.Count
	}
	return total
}

// GroupLessons 将课程列表折叠为有序的 单元 → 章节 结构
//
//   - unitNumber 非正数的记录视为脏数据直接跳过
//   - 单元名取该单元首条课程的 unit 字段，空则回退为 "Unit {n}"
//   - section 为空的课程归入 "Unknown" 章节，不丢弃
//   - 结果按 (年级名次, 单元序号, 年级) 升序，对同一输入幂等
func GroupLessons(lessons []Lesson, order GradeOrder) []UnitGroup {
	index := make(map[UnitKey]int)
	groups := make([]UnitGroup, 0)

	for _, lesson := range lessons {
		if lesson.UnitNumber <= 0 {
			continue
		}

		key := UnitKey{Grade: lesson.Grade, UnitNumber: lesson.UnitNumber}
		i, ok := index[key]
		if !ok {
			name := strings.TrimSpace(lesson.Unit)
			if name == "" {
				name = "Unit " + strconv.Itoa(lesson.UnitNumber)
			}
			groups = append(groups, UnitGroup{
				Key:        key,
				Grade:      lesson.Grade,
				UnitNumber: lesson.UnitNumber,
				UnitName:   name,
			})
			i = len(groups) - 1
			index[key] = i
		}

		sectionID := strings.TrimSpace(lesson.Section)
		if sectionID == "" {
			sectionID = SectionUnknown
		}
		groups[i].addLesson(sectionID)
	}

	sort.SliceStable(groups, func(a, b int) bool {
		ra, rb := order.Rank(groups[a].Grade), order.Rank(groups[b].Grade)
		if ra != rb {
			return ra < rb
		}
		if groups[a].UnitNumber != groups[b].UnitNumber {
			return groups[a].UnitNumber < groups[b].UnitNumber
		}
		return groups[a].Grade < groups[b].Grade
	})

	return groups
}

func (g *UnitGroup) addLesson(sectionID string) {
	for i := range g.Sections {
		if g.Sections[i].SectionID == sectionID {
			g.Sections[i].Count++
			return
		}
	}
	g.Sections = append(g.Sections, SectionCount{SectionID: sectionID, Count: 1})
}
