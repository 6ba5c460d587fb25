package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db            *gorm.DB
	SchoolYear    SchoolYearRepository
	CalendarEvent CalendarEventRepository
	Lesson        LessonRepository
	UnitSchedule  UnitScheduleRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:            db,
		SchoolYear:    NewSchoolYearRepo(db),
		CalendarEvent: NewCalendarEventRepo(db),
		Lesson:        NewLessonRepo(db),
		UnitSchedule:  NewUnitScheduleRepo(db),
	}
}

// WithTx 返回绑定到事务的 Repository 聚合
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return NewRepository(tx)
}

// Transaction 在事务中执行 fn，fn 返回错误时回滚
// 未绑定数据库（单元测试中的 mock 聚合）时直接以自身执行
func (r *Repository) Transaction(ctx context.Context, fn func(tx *Repository) error) error {
	if r.db == nil {
		return fn(r)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(r.WithTx(tx))
	})
}
