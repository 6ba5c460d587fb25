package pacing

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// UnitColor 单元配色：base 用于徽章，light/medium/dark 按章节轮换作为底色
type UnitColor struct {
	Base   string `json:"base"`
	Light  string `json:"light"`
	Medium string `json:"medium"`
	Dark   string `json:"dark"`
}

// DefaultPalette 默认单元调色板（blue, green, amber, teal, purple, pink, cyan, orange）
var DefaultPalette = []UnitColor{
	{Base: "#2563EB", Light: "#DBEAFE", Medium: "#3B82F6", Dark: "#1E3A8A"},
	{Base: "#059669", Light: "#D1FAE5", Medium: "#10B981", Dark: "#064E3B"},
	{Base: "#D97706", Light: "#FEF3C7", Medium: "#F59E0B", Dark: "#78350F"},
	{Base: "#0D9488", Light: "#CCFBF1", Medium: "#14B8A6", Dark: "#134E4A"},
	{Base: "#7C3AED", Light: "#EDE9FE", Medium: "#8B5CF6", Dark: "#4C1D95"},
	{Base: "#DB2777", Light: "#FCE7F3", Medium: "#EC4899", Dark: "#831843"},
	{Base: "#0891B2", Light: "#CFFAFE", Medium: "#06B6D4", Dark: "#164E63"},
	{Base: "#EA580C", Light: "#FFEDD5", Medium: "#F97316", Dark: "#7C2D12"},
}

// InactiveColor 非选中单元统一使用的灰色
var InactiveColor = UnitColor{Base: "#9CA3AF", Light: "#F3F4F6", Medium: "#F3F4F6", Dark: "#F3F4F6"}

// Shade 章节底色深浅
type Shade string

const (
	ShadeLight  Shade = "light"
	ShadeMedium Shade = "medium"
	ShadeDark   Shade = "dark"
)

var shades = [3]Shade{ShadeLight, ShadeMedium, ShadeDark}

// SectionShade 章节序号 % 3 轮换 light → medium → dark
func SectionShade(sectionIndex int) Shade {
	if sectionIndex < 0 {
		sectionIndex = -sectionIndex
	}
	return shades[sectionIndex%3]
}

// Fill 返回指定深浅的底色
func (c UnitColor) Fill(s Shade) string {
	switch s {
	case ShadeMedium:
		return c.Medium
	case ShadeDark:
		return c.Dark
	default:
		return c.Light
	}
}

// BadgeLabel 章节徽章文字：Ramp Up → R，Unit Test → T，其余为 sectionID
func BadgeLabel(sectionID string) string {
	switch sectionID {
	case SectionRampUp:
		return "R"
	case SectionUnitTest:
		return "T"
	}
	return sectionID
}

// DayKind 日期分类
type DayKind string

const (
	DayWeekend     DayKind = "weekend"
	DayOff         DayKind = "day_off"
	DaySchedulable DayKind = "schedulable"
)

// DayOwner 某一天归属的章节及其展示信息
type DayOwner struct {
	UnitKey        UnitKey `json:"unit_key"`
	UnitIndex      int     `json:"unit_index"`
	UnitName       string  `json:"unit_name"`
	SectionID      string  `json:"section_id"`
	SectionName    string  `json:"section_name"`
	SectionIndex   int     `json:"section_index"`
	Badge          string  `json:"badge"`
	BadgeColor     string  `json:"badge_color"`
	Background     string  `json:"background"`
	Shade          Shade   `json:"shade"`
	TextWhite      bool    `json:"text_white"`
	IsSectionStart bool    `json:"is_section_start"`
	Inactive       bool    `json:"inactive,omitempty"`
}

// DayView 单日展示信息
type DayView struct {
	Date       string          `json:"date"`
	Day        int             `json:"day"`
	Weekday    int             `json:"weekday"` // 0=周日
	Kind       DayKind         `json:"kind"`
	Selectable bool            `json:"selectable"`
	Title      string          `json:"title,omitempty"`
	Events     []CalendarEvent `json:"events,omitempty"`
	Owner      *DayOwner       `json:"owner,omitempty"`
}

// MonthView 月视图
type MonthView struct {
	Year          int       `json:"year"`
	Month         int       `json:"month"`
	Label         string    `json:"label"`
	LeadingBlanks int       `json:"leading_blanks"` // 周日起始网格中 1 号之前的空白格数
	Days          []DayView `json:"days"`
}

// RenderOptions 渲染参数
type RenderOptions struct {
	DaysOff      DaySet
	Events       []CalendarEvent
	Armed        bool        // 当前是否处于待选日期状态
	SelectedUnit int         // 选中单元下标，<0 表示全部正常着色
	Palette      []UnitColor // 为空时使用 DefaultPalette
}

// FindOwner 按 单元顺序 → 章节顺序 找到第一个包含该日期的章节
// 返回 (unitIndex, sectionIndex)，无归属时返回 (-1, -1)
func FindOwner(date string, units []UnitSchedule) (int, int) {
	for i := range units {
		for j := range units[i].Sections {
			if units[i].Sections[j].Contains(date) {
				return i, j
			}
		}
	}
	return -1, -1
}

// RenderMonth 计算指定月份每一天的展示信息
//
// 优先级：周末 > 停课日 > 可排课日。可排课日的归属取 FindOwner 的第一个命中，
// 重叠区间不合并、不叠加徽章。
func RenderMonth(year int, month time.Month, units []UnitSchedule, opts RenderOptions) MonthView {
	palette := opts.Palette
	if len(palette) == 0 {
		palette = DefaultPalette
	}

	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)

	eventsByDate := make(map[string][]CalendarEvent)
	for _, e := range opts.Events {
		eventsByDate[e.Date] = append(eventsByDate[e.Date], e)
	}

	view := MonthView{
		Year:          year,
		Month:         int(month),
		Label:         fmt.Sprintf("%s %d", month.String(), year),
		LeadingBlanks: int(first.Weekday()),
		Days:          make([]DayView, 0, last.Day()),
	}

	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		date := d.Format(DateLayout)
		day := DayView{
			Date:    date,
			Day:     d.Day(),
			Weekday: int(d.Weekday()),
			Events:  eventsByDate[date],
		}

		switch {
		case IsWeekend(d):
			day.Kind = DayWeekend
			day.Title = "Weekend"
		case opts.DaysOff.Has(date):
			day.Kind = DayOff
			day.Title = dayOffTitle(day.Events)
		default:
			day.Kind = DaySchedulable
			day.Selectable = opts.Armed
			if ui, si := FindOwner(date, units); ui >= 0 {
				day.Owner = buildOwner(units, ui, si, date, palette, opts.SelectedUnit)
				day.Title = units[ui].UnitName + " - " + units[ui].Sections[si].Name
			}
		}

		view.Days = append(view.Days, day)
	}

	return view
}

func buildOwner(units []UnitSchedule, ui, si int, date string, palette []UnitColor, selected int) *DayOwner {
	unit := &units[ui]
	section := unit.Sections[si]

	owner := &DayOwner{
		UnitKey:        unit.Key,
		UnitIndex:      ui,
		UnitName:       unit.UnitName,
		SectionID:      section.SectionID,
		SectionName:    section.Name,
		SectionIndex:   si,
		Shade:          SectionShade(si),
		IsSectionStart: section.StartDate == date,
	}

	if selected >= 0 && selected != ui {
		owner.Inactive = true
		owner.Badge = "Unit " + strconv.Itoa(unit.UnitNumber)
		owner.BadgeColor = InactiveColor.Base
		owner.Background = InactiveColor.Light
		owner.Shade = ShadeLight
		return owner
	}

	color := palette[ui%len(palette)]
	owner.Badge = BadgeLabel(section.SectionID)
	owner.BadgeColor = color.Base
	owner.Background = color.Fill(owner.Shade)
	owner.TextWhite = owner.Shade != ShadeLight
	return owner
}

func dayOffTitle(events []CalendarEvent) string {
	if len(events) == 0 {
		return "Day Off"
	}
	names := make([]string, 0, len(events))
	for _, e := range events {
		names = append(names, e.Name)
	}
	return strings.Join(names, ", ")
}
