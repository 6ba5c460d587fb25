package logger

import (
	"testing"

	gormlogger "gorm.io/gorm/logger"

	"pacing-calendar/backend/config"
)

func TestNewLogger(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		l, err := NewLogger(&config.LogConfig{Level: "debug", Format: format})
		if err != nil {
			t.Fatalf("format=%s 初始化应成功: %v", format, err)
		}
		_ = l.Sync()
	}

	if _, err := NewLogger(&config.LogConfig{Level: "loud", Format: "json"}); err == nil {
		t.Error("无效日志级别应返回错误")
	}
}

func TestGormLevel(t *testing.T) {
	cases := map[string]gormlogger.LogLevel{
		"debug": gormlogger.Info,
		"info":  gormlogger.Warn,
		"error": gormlogger.Error,
		"fatal": gormlogger.Silent,
	}
	for in, want := range cases {
		if got := GormLevel(in); got != want {
			t.Errorf("GormLevel(%s) 期望=%d，实际=%d", in, want, got)
		}
	}
}
