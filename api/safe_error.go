package api

import (
	"ledger/config"
)

// SafeErrorMessage 生产环境下不向客户端暴露内部错误详情，避免信息泄露
// 所有 handler 统一走这一个脱敏策略，不允许直接回显底层错误
func SafeErrorMessage(err error, fallback string) string {
	return config.SafeErrorMessage(err, fallback)
}
