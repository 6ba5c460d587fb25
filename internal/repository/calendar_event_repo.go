package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pacing-calendar/backend/internal/model"
)

// CalendarEventRepository 学校日历事件数据访问接口
type CalendarEventRepository interface {
	ListBySchoolYear(ctx context.Context, schoolYear string) ([]model.CalendarEvent, error)
	ListDaysOff(ctx context.Context, schoolYear string) ([]string, error)
	// BatchCreate 批量写入，(school_year, date, name) 重复的事件忽略，返回实际新增数
	BatchCreate(ctx context.Context, events []model.CalendarEvent) (int64, error)
	// DeleteDaysOff 删除某日的全部停课事件，返回删除数
	DeleteDaysOff(ctx context.Context, schoolYear, date string) (int64, error)
}

type calendarEventRepo struct {
	db *gorm.DB
}

// NewCalendarEventRepo 创建 CalendarEventRepository 实例
func NewCalendarEventRepo(db *gorm.DB) CalendarEventRepository {
	return &calendarEventRepo{db: db}
}

func (r *calendarEventRepo) ListBySchoolYear(ctx context.Context, schoolYear string) ([]model.CalendarEvent, error) {
	var events []model.CalendarEvent
	err := r.db.WithContext(ctx).
		Where("school_year = ?", schoolYear).
		Order("date ASC, name ASC").
		Find(&events).Error
	return events, err
}

func (r *calendarEventRepo) ListDaysOff(ctx context.Context, schoolYear string) ([]string, error) {
	var dates []string
	err := r.db.WithContext(ctx).
		Model(&model.CalendarEvent{}).
		Where("school_year = ? AND has_math_class = ?", schoolYear, false).
		Distinct("date").
		Order("date ASC").
		Pluck("date", &dates).Error
	return dates, err
}

func (r *calendarEventRepo) BatchCreate(ctx context.Context, events []model.CalendarEvent) (int64, error) {
	if len(events) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "school_year"}, {Name: "date"}, {Name: "name"}},
			DoNothing: true,
		}).
		CreateInBatches(events, 200)
	return result.RowsAffected, result.Error
}

func (r *calendarEventRepo) DeleteDaysOff(ctx context.Context, schoolYear, date string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("school_year = ? AND date = ? AND has_math_class = ?", schoolYear, date, false).
		Delete(&model.CalendarEvent{})
	return result.RowsAffected, result.Error
}
