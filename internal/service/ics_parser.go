package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"pacing-calendar/backend/internal/model"
	"pacing-calendar/backend/internal/pacing"
)

// ── ICS 解析器 ──────────────────────────────────────────────
//
// 职责：将学校日历的 iCalendar (RFC 5545) 内容解析为停课事件。
//
//   - 仅处理全天事件（DTSTART 为 VALUE=DATE 或 8 位日期），带时刻的事件忽略
//   - DTEND 为不含的结束日；缺省时视为单日事件
//   - 多日事件逐日展开，周末跳过
//   - 同一文件内 (date, name) 重复的事件只保留一条
// ─────────────────────────────────────────────────────────────

const (
	icsMaxFileSize = 5 * 1024 * 1024 // 5MB
	icsMaxSpanDays = 120             // 单个事件最多展开的天数
)

// FetchICSContent 从 URL 获取 ICS 内容
func FetchICSContent(ctx context.Context, rawURL string, timeout time.Duration) (io.ReadCloser, error) {
	// webcal:// → https://
	u := rawURL
	if strings.HasPrefix(u, "webcal://") {
		u = "https://" + strings.TrimPrefix(u, "webcal://")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("获取 ICS 失败: %w", err)
	}
	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("获取 ICS 失败: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("获取 ICS 失败: HTTP %d", resp.StatusCode)
	}
	// 限制响应体大小
	return struct {
		io.Reader
		io.Closer
	}{
		Reader: io.LimitReader(resp.Body, icsMaxFileSize),
		Closer: resp.Body,
	}, nil
}

// ParseDaysOffICS 解析 ICS 内容为指定学年的停课事件，按 (date, name) 排序
func ParseDaysOffICS(reader io.Reader, schoolYear string) ([]model.CalendarEvent, error) {
	cal, err := ics.ParseCalendar(reader)
	if err != nil {
		return nil, fmt.Errorf("ICS 格式解析失败: %w", err)
	}

	type key struct{ date, name string }
	seen := make(map[key]bool)
	var result []model.CalendarEvent

	for _, evt := range cal.Events() {
		name, start, end, ok := parseAllDayEvent(evt)
		if !ok {
			continue
		}
		description := ""
		if p := evt.GetProperty(ics.ComponentPropertyDescription); p != nil {
			description = strings.TrimSpace(p.Value)
		}

		for d, n := start, 0; d.Before(end) && n < icsMaxSpanDays; d, n = d.AddDate(0, 0, 1), n+1 {
			if pacing.IsWeekend(d) {
				continue
			}
			k := key{date: pacing.FormatDate(d), name: name}
			if seen[k] {
				continue
			}
			seen[k] = true
			result = append(result, model.CalendarEvent{
				SchoolYear:   schoolYear,
				Date:         k.date,
				Name:         name,
				Type:         model.EventTypeICS,
				HasMathClass: false,
				Description:  description,
				Source:       model.EventSourceICS,
			})
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Date != result[j].Date {
			return result[i].Date < result[j].Date
		}
		return result[i].Name < result[j].Name
	})
	return result, nil
}

// parseAllDayEvent 返回全天事件的名称与 [start, end) 日期区间
func parseAllDayEvent(evt *ics.VEvent) (string, time.Time, time.Time, bool) {
	summary := evt.GetProperty(ics.ComponentPropertySummary)
	if summary == nil || strings.TrimSpace(summary.Value) == "" {
		return "", time.Time{}, time.Time{}, false
	}
	name := strings.TrimSpace(summary.Value)

	start, ok := parseICSDate(evt.GetProperty(ics.ComponentPropertyDtStart))
	if !ok {
		return "", time.Time{}, time.Time{}, false
	}
	end, ok := parseICSDate(evt.GetProperty(ics.ComponentPropertyDtEnd))
	if !ok || !end.After(start) {
		end = start.AddDate(0, 0, 1)
	}
	return name, start, end, true
}

// parseICSDate 解析全天日期属性，带时刻的值返回 false
func parseICSDate(prop *ics.IANAProperty) (time.Time, bool) {
	if prop == nil {
		return time.Time{}, false
	}
	val := strings.TrimSpace(prop.Value)

	allDay := len(val) == 8
	for k, v := range prop.ICalParameters {
		if strings.ToUpper(k) == "VALUE" && len(v) > 0 && strings.ToUpper(v[0]) == "DATE" {
			allDay = true
		}
	}
	if !allDay || len(val) < 8 {
		return time.Time{}, false
	}

	t, err := time.Parse("20060102", val[:8])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
