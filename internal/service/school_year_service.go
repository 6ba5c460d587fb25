package service

import (
	"context"
	"errors"
	"strconv"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"pacing-calendar/backend/internal/dto"
	"pacing-calendar/backend/internal/model"
	"pacing-calendar/backend/internal/pacing"
	"pacing-calendar/backend/internal/repository"
)

// ── 学年模块业务错误 ──

var (
	ErrSchoolYearNotFound    = errors.New("学年不存在")
	ErrSchoolYearNameInvalid = errors.New("学年名称格式应为 YYYY-YYYY 且跨度为一年")
	ErrSchoolYearDateInvalid = errors.New("学年结束日期必须晚于开始日期")
	ErrSchoolYearDuplicate   = errors.New("学年已存在")
)

// SchoolYearService 学年业务接口
type SchoolYearService interface {
	Create(ctx context.Context, req *dto.CreateSchoolYearRequest, callerID string) (*dto.SchoolYearResponse, error)
	GetByID(ctx context.Context, id string) (*dto.SchoolYearResponse, error)
	GetCurrent(ctx context.Context) (*dto.SchoolYearResponse, error)
	List(ctx context.Context) ([]dto.SchoolYearResponse, error)
	Update(ctx context.Context, id string, req *dto.UpdateSchoolYearRequest) (*dto.SchoolYearResponse, error)
	Activate(ctx context.Context, id string) error
	// Resolve 校验学年名称；为空时取当前激活学年，没有激活学年时取默认值
	Resolve(ctx context.Context, name string) (string, error)
}

type schoolYearService struct {
	repo        *repository.Repository
	defaultYear string
	logger      *zap.Logger
}

// NewSchoolYearService 创建 SchoolYearService 实例
func NewSchoolYearService(repo *repository.Repository, defaultYear string, logger *zap.Logger) SchoolYearService {
	return &schoolYearService{repo: repo, defaultYear: defaultYear, logger: logger}
}

// ValidSchoolYearName 判断 "2025-2026" 形式的学年名称
func ValidSchoolYearName(name string) bool {
	if len(name) != 9 || name[4] != '-' {
		return false
	}
	first, err1 := strconv.Atoi(name[:4])
	second, err2 := strconv.Atoi(name[5:])
	return err1 == nil && err2 == nil && second == first+1
}

// ────────────────────── Create ──────────────────────

func (s *schoolYearService) Create(ctx context.Context, req *dto.CreateSchoolYearRequest, callerID string) (*dto.SchoolYearResponse, error) {
	if !ValidSchoolYearName(req.Name) {
		return nil, ErrSchoolYearNameInvalid
	}
	if !pacing.ValidDate(req.StartDate) || !pacing.ValidDate(req.EndDate) || req.EndDate <= req.StartDate {
		return nil, ErrSchoolYearDateInvalid
	}

	if _, err := s.repo.SchoolYear.GetByName(ctx, req.Name); err == nil {
		return nil, ErrSchoolYearDuplicate
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询学年失败", zap.String("name", req.Name), zap.Error(err))
		return nil, err
	}

	year := &model.SchoolYear{
		Name:      req.Name,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		CreatedBy: callerID,
	}
	if err := s.repo.SchoolYear.Create(ctx, year); err != nil {
		s.logger.Error("创建学年失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("学年创建成功", zap.String("name", year.Name), zap.String("created_by", callerID))
	return toSchoolYearResponse(year), nil
}

// ────────────────────── Query ──────────────────────

func (s *schoolYearService) GetByID(ctx context.Context, id string) (*dto.SchoolYearResponse, error) {
	year, err := s.repo.SchoolYear.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSchoolYearNotFound
		}
		s.logger.Error("查询学年失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return toSchoolYearResponse(year), nil
}

func (s *schoolYearService) GetCurrent(ctx context.Context) (*dto.SchoolYearResponse, error) {
	year, err := s.repo.SchoolYear.GetCurrent(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSchoolYearNotFound
		}
		s.logger.Error("查询当前学年失败", zap.Error(err))
		return nil, err
	}
	return toSchoolYearResponse(year), nil
}

func (s *schoolYearService) List(ctx context.Context) ([]dto.SchoolYearResponse, error) {
	years, err := s.repo.SchoolYear.List(ctx)
	if err != nil {
		s.logger.Error("查询学年列表失败", zap.Error(err))
		return nil, err
	}
	result := make([]dto.SchoolYearResponse, 0, len(years))
	for i := range years {
		result = append(result, *toSchoolYearResponse(&years[i]))
	}
	return result, nil
}

func (s *schoolYearService) Resolve(ctx context.Context, name string) (string, error) {
	if name != "" {
		if !ValidSchoolYearName(name) {
			return "", ErrSchoolYearNameInvalid
		}
		return name, nil
	}

	year, err := s.repo.SchoolYear.GetCurrent(ctx)
	if err == nil {
		return year.Name, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询当前学年失败", zap.Error(err))
		return "", err
	}
	if s.defaultYear == "" {
		return "", ErrSchoolYearNotFound
	}
	return s.defaultYear, nil
}

// ────────────────────── Update ──────────────────────

func (s *schoolYearService) Update(ctx context.Context, id string, req *dto.UpdateSchoolYearRequest) (*dto.SchoolYearResponse, error) {
	year, err := s.repo.SchoolYear.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSchoolYearNotFound
		}
		s.logger.Error("查询学年失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	if req.StartDate != nil {
		year.StartDate = *req.StartDate
	}
	if req.EndDate != nil {
		year.EndDate = *req.EndDate
	}
	if !pacing.ValidDate(year.StartDate) || !pacing.ValidDate(year.EndDate) || year.EndDate <= year.StartDate {
		return nil, ErrSchoolYearDateInvalid
	}

	if err := s.repo.SchoolYear.Update(ctx, year); err != nil {
		s.logger.Error("更新学年失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return toSchoolYearResponse(year), nil
}

// ────────────────────── Activate ──────────────────────

func (s *schoolYearService) Activate(ctx context.Context, id string) error {
	year, err := s.repo.SchoolYear.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSchoolYearNotFound
		}
		s.logger.Error("查询学年失败", zap.String("id", id), zap.Error(err))
		return err
	}

	// ClearActive + Update 在同一事务中，保证最多一个激活学年
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.SchoolYear.ClearActive(ctx); err != nil {
			return err
		}
		year.IsActive = true
		return tx.SchoolYear.Update(ctx, year)
	})
	if err != nil {
		s.logger.Error("激活学年失败", zap.String("id", id), zap.Error(err))
		return err
	}

	s.logger.Info("学年已激活", zap.String("name", year.Name))
	return nil
}

func toSchoolYearResponse(year *model.SchoolYear) *dto.SchoolYearResponse {
	return &dto.SchoolYearResponse{
		ID:        year.SchoolYearID,
		Name:      year.Name,
		StartDate: year.StartDate,
		EndDate:   year.EndDate,
		IsActive:  year.IsActive,
		CreatedAt: formatTime(year.CreatedAt),
		UpdatedAt: formatTime(year.UpdatedAt),
	}
}
