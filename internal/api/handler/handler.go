package handler

import "pacing-calendar/backend/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	SchoolYear    *SchoolYearHandler
	Calendar      *CalendarHandler
	ScopeSequence *ScopeSequenceHandler
	UnitSchedule  *UnitScheduleHandler
	Pacing        *PacingHandler
	Session       *SessionHandler
	Export        *ExportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		SchoolYear:    NewSchoolYearHandler(svc.SchoolYear),
		Calendar:      NewCalendarHandler(svc.Calendar, svc.SchoolYear),
		ScopeSequence: NewScopeSequenceHandler(svc.ScopeSequence),
		UnitSchedule:  NewUnitScheduleHandler(svc.UnitSchedule, svc.SchoolYear),
		Pacing:        NewPacingHandler(svc.Pacing, svc.SchoolYear),
		Session:       NewSessionHandler(svc.Session, svc.SchoolYear),
		Export:        NewExportHandler(svc.Export, svc.SchoolYear),
	}
}
