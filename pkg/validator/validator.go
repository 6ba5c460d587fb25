package validator

import (
	"errors"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	govalidator "github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
)

var (
	once  sync.Once
	trans ut.Translator
)

// Setup 在 Gin 的绑定引擎上注册自定义规则与中文翻译，启动时调用一次
//
// 自定义规则：
//   - ymd:       YYYY-MM-DD 日期
//   - yearmonth: YYYY-MM 月份
func Setup() {
	once.Do(func() {
		v, ok := binding.Validator.Engine().(*govalidator.Validate)
		if !ok {
			return
		}

		// 错误信息中使用 json/form 标签名
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return fld.Name
		})

		_ = v.RegisterValidation("ymd", layoutRule("2006-01-02"))
		_ = v.RegisterValidation("yearmonth", layoutRule("2006-01"))

		zhLocale := zh.New()
		uni := ut.New(zhLocale, zhLocale)
		trans, _ = uni.GetTranslator("zh")
		_ = zh_translations.RegisterDefaultTranslations(v, trans)
		registerMessage(v, "ymd", "{0}必须是 YYYY-MM-DD 格式的日期")
		registerMessage(v, "yearmonth", "{0}必须是 YYYY-MM 格式的月份")
	})
}

func layoutRule(layout string) govalidator.Func {
	return func(fl govalidator.FieldLevel) bool {
		s := fl.Field().String()
		_, err := time.Parse(layout, s)
		return err == nil && len(s) == len(layout)
	}
}

func registerMessage(v *govalidator.Validate, tag, msg string) {
	_ = v.RegisterTranslation(tag, trans,
		func(ut ut.Translator) error { return ut.Add(tag, msg, true) },
		func(ut ut.Translator, fe govalidator.FieldError) string {
			s, _ := ut.T(tag, fe.Field())
			return s
		},
	)
}

// TranslateErrors 将绑定错误转换为 字段名 → 中文提示；
// 非校验错误（如 JSON 语法错误）以 detail 返回
func TranslateErrors(err error) map[string]string {
	fields := make(map[string]string)

	var ve govalidator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			if trans != nil {
				fields[fe.Field()] = fe.Translate(trans)
			} else {
				fields[fe.Field()] = fe.Error()
			}
		}
		return fields
	}

	fields["detail"] = err.Error()
	return fields
}

// Describe 将绑定错误拼接为单行说明，字段按名称排序
func Describe(err error) string {
	fields := TranslateErrors(err)
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fields[k])
	}
	return strings.Join(parts, "; ")
}
