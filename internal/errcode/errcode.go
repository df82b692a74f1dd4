// Package errcode 定义导出通知里 error_code 字段的取值，前端据此决定提示文案与是否允许重新导出。
package errcode

// 4xxx 为业务错误，重新导出也不会成功；5xxx 为系统错误，可稍后重试。
const (
	OK = 0

	InvalidMode   = 4000
	ResumeMissing = 4004

	SystemError  = 5000
	RenderFailed = 5001
	UploadFailed = 5002
)

// Retryable 报告用户能否通过重新导出解决该错误。
func Retryable(code int) bool {
	return code >= 5000
}
