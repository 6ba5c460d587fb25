package pacing

import (
	"testing"
	"time"
)

func overlappingUnits() []UnitSchedule {
	return []UnitSchedule{
		{
			Key: unit1, Grade: "6", UnitNumber: 1, UnitName: "Ratios",
			Sections: []SectionSchedule{
				{SectionID: SectionRampUp, Name: SectionRampUp, LessonCount: 1},
				{SectionID: "A", Name: "Section A", StartDate: "2025-09-02", EndDate: "2025-09-05", LessonCount: 5},
			},
		},
		{
			Key: UnitKey{Grade: "6", UnitNumber: 2}, Grade: "6", UnitNumber: 2, UnitName: "Fractions",
			Sections: []SectionSchedule{
				{SectionID: SectionRampUp, Name: SectionRampUp, StartDate: "2025-09-04", EndDate: "2025-09-10", LessonCount: 1},
			},
		},
	}
}

func TestFindOwner_FirstMatchWins(t *testing.T) {
	units := overlappingUnits()

	if ui, si := FindOwner("2025-09-04", units); ui != 0 || si != 1 {
		t.Errorf("重叠日期应归属第一个命中的单元章节，实际=(%d,%d)", ui, si)
	}
	if ui, _ := FindOwner("2025-09-09", units); ui != 1 {
		t.Errorf("2025-09-09 应归属单元 2，实际=%d", ui)
	}
	if ui, si := FindOwner("2025-08-01", units); ui != -1 || si != -1 {
		t.Error("无归属日期应返回 (-1,-1)")
	}
}

func TestRenderMonth_DayKinds(t *testing.T) {
	events := []CalendarEvent{{Date: "2025-09-01", Name: "Labor Day"}}
	view := RenderMonth(2025, time.September, overlappingUnits(), RenderOptions{
		DaysOff:      DaysOffFromEvents(events),
		Events:       events,
		Armed:        true,
		SelectedUnit: -1,
	})

	if len(view.Days) != 30 {
		t.Fatalf("九月应有 30 天，实际=%d", len(view.Days))
	}
	if view.LeadingBlanks != 1 {
		t.Errorf("2025-09-01 为周一，期望前置空白=1，实际=%d", view.LeadingBlanks)
	}

	laborDay := view.Days[0]
	if laborDay.Kind != DayOff || laborDay.Title != "Labor Day" || laborDay.Selectable {
		t.Errorf("停课日渲染错误: %+v", laborDay)
	}

	saturday := view.Days[5]
	if saturday.Kind != DayWeekend || saturday.Owner != nil {
		t.Errorf("周末不应有归属: %+v", saturday)
	}

	overlap := view.Days[3]
	if overlap.Owner == nil || overlap.Owner.UnitIndex != 0 || overlap.Owner.Badge != "A" {
		t.Fatalf("重叠日期应显示单元 1 的章节 A: %+v", overlap.Owner)
	}
	if !overlap.Selectable {
		t.Error("待选状态下可排课日应可点击")
	}
	if overlap.Owner.Shade != ShadeMedium || !overlap.Owner.TextWhite {
		t.Errorf("章节序号 1 应为 medium 底色白字，实际=%+v", overlap.Owner)
	}

	start := view.Days[1]
	if start.Owner == nil || !start.Owner.IsSectionStart {
		t.Error("章节首日应标记 IsSectionStart")
	}

	rampUp := view.Days[8]
	if rampUp.Owner == nil || rampUp.Owner.Badge != "R" || rampUp.Owner.Shade != ShadeLight {
		t.Errorf("Ramp Up 应显示徽章 R 且为 light，实际=%+v", rampUp.Owner)
	}
}

func TestRenderMonth_InactiveUnits(t *testing.T) {
	view := RenderMonth(2025, time.September, overlappingUnits(), RenderOptions{SelectedUnit: 1})

	day := view.Days[1] // 2025-09-02 属于单元 1
	if day.Owner == nil || !day.Owner.Inactive {
		t.Fatalf("非选中单元应渲染为灰色: %+v", day.Owner)
	}
	if day.Owner.Badge != "Unit 1" || day.Owner.Background != InactiveColor.Light {
		t.Errorf("非选中单元徽章应为 Unit 1，实际=%+v", day.Owner)
	}
	if day.Selectable {
		t.Error("未待选时日期不可点击")
	}

	active := view.Days[8] // 2025-09-09 属于单元 2
	if active.Owner == nil || active.Owner.Inactive {
		t.Error("选中单元应正常着色")
	}
}

func TestBadgeLabelAndShade(t *testing.T) {
	if BadgeLabel(SectionRampUp) != "R" || BadgeLabel(SectionUnitTest) != "T" || BadgeLabel("C") != "C" {
		t.Error("徽章文字错误")
	}
	want := []Shade{ShadeLight, ShadeMedium, ShadeDark, ShadeLight}
	for i, s := range want {
		if SectionShade(i) != s {
			t.Errorf("SectionShade(%d) 期望=%s，实际=%s", i, s, SectionShade(i))
		}
	}
}
