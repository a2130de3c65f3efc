package model

import (
	"errors"
	"fmt"
	"learning_analytics/internal/util"
	"reflect"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

type validEnum interface {
	Valid() bool
}

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// 错误信息中使用存储字段名而不是 Go 字段名
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})

		_ = validate.RegisterValidation("enum", func(fl validator.FieldLevel) bool {
			if e, ok := fl.Field().Interface().(validEnum); ok {
				return e.Valid()
			}
			return false
		})
	})
	return validate
}

// validateStruct 把 validator 的字段错误转换为 util.ValidationError
func validateStruct(s interface{}) error {
	err := validatorInstance().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return util.NewValidationError("", err.Error())
	}

	fe := fieldErrs[0]
	return util.NewValidationError(fieldPath(fe), describe(fe))
}

// fieldPath 去掉结构体名与内嵌结构体前缀，
// 如 RecommendationBatch.recommendedItems[0].score -> recommendedItems[0].score
func fieldPath(fe validator.FieldError) string {
	segments := strings.Split(fe.Namespace(), ".")
	if len(segments) <= 1 {
		return fe.Field()
	}
	segments = segments[1:]
	// 存储字段名均为小写开头，大写开头的是内嵌的 Go 结构体
	for len(segments) > 1 && segments[0] != "" && unicode.IsUpper(rune(segments[0][0])) {
		segments = segments[1:]
	}
	return strings.Join(segments, ".")
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte", "min":
		return "must be >= " + fe.Param()
	case "lte", "max":
		return "must be <= " + fe.Param()
	case "gtfield":
		return "must be after " + fe.Param()
	case "gtefield":
		return "must be >= " + fe.Param()
	case "enum":
		return fmt.Sprintf("has unknown code %v", fe.Value())
	}
	return fmt.Sprintf("failed %q check", fe.Tag())
}
