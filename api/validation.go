package api

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldError 单个字段的校验错误
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// FieldErrors 将 gin 绑定返回的校验错误转换为逐字段错误明细
// 非校验类错误（如 JSON 语法错误）返回单条 body 级错误
func FieldErrors(err error) []FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Field: "body", Message: "请求体格式错误"}}
	}

	result := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		result = append(result, FieldError{
			Field:   strings.ToLower(fe.Field()),
			Message: fieldErrorMessage(fe),
		})
	}
	return result
}

func fieldErrorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "必填字段缺失"
	case "gt":
		return fmt.Sprintf("必须大于 %s", fe.Param())
	case "gte":
		return fmt.Sprintf("必须大于等于 %s", fe.Param())
	case "max":
		return fmt.Sprintf("长度不能超过 %s", fe.Param())
	case "min":
		return fmt.Sprintf("长度不能小于 %s", fe.Param())
	default:
		return fmt.Sprintf("不满足约束 %s", fe.Tag())
	}
}
