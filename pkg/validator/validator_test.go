package validator

import (
	"strings"
	"testing"

	"github.com/gin-gonic/gin/binding"
)

type dayRequest struct {
	Date  string `json:"date"  binding:"required,ymd"`
	Month string `json:"month" binding:"omitempty,yearmonth"`
}

func TestSetup_CustomRules(t *testing.T) {
	Setup()

	tests := []struct {
		name  string
		req   dayRequest
		valid bool
	}{
		{"合法日期", dayRequest{Date: "2025-09-02"}, true},
		{"合法日期与月份", dayRequest{Date: "2025-09-02", Month: "2025-09"}, true},
		{"非法日期", dayRequest{Date: "2025-02-30"}, false},
		{"缺少前导零", dayRequest{Date: "2025-9-2"}, false},
		{"非法月份", dayRequest{Date: "2025-09-02", Month: "2025-13"}, false},
		{"缺少日期", dayRequest{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := binding.Validator.ValidateStruct(&tt.req)
			if tt.valid && err != nil {
				t.Errorf("期望通过，实际错误=%v", err)
			}
			if !tt.valid && err == nil {
				t.Error("期望校验失败")
			}
		})
	}
}

func TestTranslateErrors_UsesJSONName(t *testing.T) {
	Setup()

	err := binding.Validator.ValidateStruct(&dayRequest{Date: "09/02/2025"})
	fields := TranslateErrors(err)

	msg, ok := fields["date"]
	if !ok {
		t.Fatalf("期望包含 date 字段，实际=%v", fields)
	}
	if !strings.Contains(msg, "YYYY-MM-DD") {
		t.Errorf("期望中文日期格式提示，实际=%s", msg)
	}
}

func TestDescribe_NonValidationError(t *testing.T) {
	got := Describe(errTest("unexpected EOF"))
	if got != "unexpected EOF" {
		t.Errorf("期望原样返回，实际=%s", got)
	}
}

type errTest string

func (e errTest) Error() string { return string(e) }
