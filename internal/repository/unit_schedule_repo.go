package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pacing-calendar/backend/internal/model"
	pkgerrors "pacing-calendar/backend/pkg/errors"
)

// UnitScheduleRepository 单元排期数据访问接口
type UnitScheduleRepository interface {
	// ListBySchoolYear 查询学年下的排期（含章节），grades 为空时返回全部年级
	ListBySchoolYear(ctx context.Context, schoolYear string, grades []string) ([]model.UnitSchedule, error)
	GetByKey(ctx context.Context, schoolYear, grade string, unitNumber int) (*model.UnitSchedule, error)
	// GetByKeyForUpdate 同 GetByKey，并对单元行加 FOR UPDATE 锁（需在事务中调用）
	GetByKeyForUpdate(ctx context.Context, schoolYear, grade string, unitNumber int) (*model.UnitSchedule, error)
	Create(ctx context.Context, us *model.UnitSchedule) error
	// Update 乐观锁更新单元级字段，version 不匹配时返回 ErrOptimisticLock
	Update(ctx context.Context, us *model.UnitSchedule) error
	ReplaceSections(ctx context.Context, unitScheduleID string, sections []model.UnitScheduleSection) error
	UpdateSection(ctx context.Context, section *model.UnitScheduleSection) error
}

type unitScheduleRepo struct {
	db *gorm.DB
}

// NewUnitScheduleRepo 创建 UnitScheduleRepository 实例
func NewUnitScheduleRepo(db *gorm.DB) UnitScheduleRepository {
	return &unitScheduleRepo{db: db}
}

func preloadSections(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

func (r *unitScheduleRepo) ListBySchoolYear(ctx context.Context, schoolYear string, grades []string) ([]model.UnitSchedule, error) {
	var list []model.UnitSchedule
	q := r.db.WithContext(ctx).
		Preload("Sections", preloadSections).
		Where("school_year = ?", schoolYear)
	if len(grades) > 0 {
		q = q.Where("grade IN ?", grades)
	}
	err := q.Order("grade ASC, unit_number ASC").Find(&list).Error
	return list, err
}

func (r *unitScheduleRepo) GetByKey(ctx context.Context, schoolYear, grade string, unitNumber int) (*model.UnitSchedule, error) {
	var us model.UnitSchedule
	err := r.db.WithContext(ctx).
		Preload("Sections", preloadSections).
		Where("school_year = ? AND grade = ? AND unit_number = ?", schoolYear, grade, unitNumber).
		First(&us).Error
	if err != nil {
		return nil, err
	}
	return &us, nil
}

func (r *unitScheduleRepo) GetByKeyForUpdate(ctx context.Context, schoolYear, grade string, unitNumber int) (*model.UnitSchedule, error) {
	var us model.UnitSchedule
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("school_year = ? AND grade = ? AND unit_number = ?", schoolYear, grade, unitNumber).
		First(&us).Error
	if err != nil {
		return nil, err
	}

	// 章节单独查询，避免 FOR UPDATE 作用到 Preload 语句
	err = r.db.WithContext(ctx).
		Where("unit_schedule_id = ?", us.UnitScheduleID).
		Order("position ASC").
		Find(&us.Sections).Error
	if err != nil {
		return nil, err
	}
	return &us, nil
}

func (r *unitScheduleRepo) Create(ctx context.Context, us *model.UnitSchedule) error {
	if us.Version == 0 {
		us.Version = 1
	}
	return r.db.WithContext(ctx).Create(us).Error
}

func (r *unitScheduleRepo) Update(ctx context.Context, us *model.UnitSchedule) error {
	oldVersion := us.Version
	result := r.db.WithContext(ctx).
		Model(&model.UnitSchedule{}).
		Where("unit_schedule_id = ? AND version = ?", us.UnitScheduleID, oldVersion).
		Updates(map[string]interface{}{
			"unit_name":  us.UnitName,
			"start_date": us.StartDate,
			"end_date":   us.EndDate,
			"updated_by": us.UpdatedBy,
			"updated_at": gorm.Expr("NOW()"),
			"version":    oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	us.Version = oldVersion + 1
	return nil
}

func (r *unitScheduleRepo) ReplaceSections(ctx context.Context, unitScheduleID string, sections []model.UnitScheduleSection) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("unit_schedule_id = ?", unitScheduleID).
		Delete(&model.UnitScheduleSection{}).Error; err != nil {
		return err
	}
	if len(sections) == 0 {
		return nil
	}
	for i := range sections {
		sections[i].UnitScheduleID = unitScheduleID
	}
	return db.Create(&sections).Error
}

func (r *unitScheduleRepo) UpdateSection(ctx context.Context, section *model.UnitScheduleSection) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "unit_schedule_id"}, {Name: "section_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"start_date", "end_date"}),
		}).
		Create(section).Error
}
