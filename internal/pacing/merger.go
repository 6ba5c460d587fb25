package pacing

import "sort"

// MergeSchedules 将持久化排期叠加到分组结果上，生成内存排期模型
//
// 章节顺序固定为：Ramp Up → 课程章节（按 sectionID 字典序）→ Unit Test。
// Ramp Up / Unit Test 为合成章节，即使没有对应课时也总会生成；
// 数据源中的 "Ramp Ups" / "Unit Assessment" 课时计入对应合成章节。
func MergeSchedules(groups []UnitGroup, saved []SavedUnitSchedule) []UnitSchedule {
	savedIndex := make(map[UnitKey]*SavedUnitSchedule, len(saved))
	for i := range saved {
		savedIndex[saved[i].Key()] = &saved[i]
	}

	result := make([]UnitSchedule, 0, len(groups))
	for i := range groups {
		g := &groups[i]
		s := savedIndex[g.Key]
		result = append(result, mergeUnit(g, s))
	}
	return result
}

func mergeUnit(g *UnitGroup, saved *SavedUnitSchedule) UnitSchedule {
	unit := UnitSchedule{
		Key:        g.Key,
		Grade:      g.Grade,
		UnitNumber: g.UnitNumber,
		UnitName:   g.UnitName,
	}
	if saved != nil {
		unit.StartDate = saved.StartDate
		unit.EndDate = saved.EndDate
	}

	curriculum := make([]SectionCount, 0, len(g.Sections))
	for _, sc := range g.Sections {
		switch sc.SectionID {
		case sourceSectionRampUps, sourceSectionUnitAssessment, SectionRampUp, SectionUnitTest:
			continue
		}
		curriculum = append(curriculum, sc)
	}
	sort.Slice(curriculum, func(a, b int) bool {
		return curriculum[a].SectionID < curriculum[b].SectionID
	})

	sections := make([]SectionSchedule, 0, len(curriculum)+2)
	sections = append(sections, syntheticSection(SectionRampUp,
		g.SectionCount(sourceSectionRampUps)+g.SectionCount(SectionRampUp), saved))
	for _, sc := range curriculum {
		sections = append(sections, withSavedDates(SectionSchedule{
			SectionID:   sc.SectionID,
			Name:        "Section " + sc.SectionID,
			LessonCount: sc.Count,
		}, saved))
	}
	sections = append(sections, syntheticSection(SectionUnitTest,
		g.SectionCount(sourceSectionUnitAssessment)+g.SectionCount(SectionUnitTest), saved))

	unit.Sections = sections
	return unit
}

func syntheticSection(id string, count int, saved *SavedUnitSchedule) SectionSchedule {
	s := SectionSchedule{SectionID: id, Name: id, LessonCount: count}
	if count == 0 {
		s.LessonCount = 1
		s.Placeholder = true
	}
	return withSavedDates(s, saved)
}

func withSavedDates(s SectionSchedule, saved *SavedUnitSchedule) SectionSchedule {
	if saved == nil {
		return s
	}
	for _, ss := range saved.Sections {
		if ss.SectionID == s.SectionID {
			s.StartDate = ss.StartDate
			s.EndDate = ss.EndDate
			break
		}
	}
	return s
}
