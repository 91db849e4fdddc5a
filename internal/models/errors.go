package models

import "errors"

// 管道级错误类别。统一在此声明，各层用 fmt.Errorf("%w: ...") 包装，
// HTTP/WS 边界用 errors.Is 映射为响应。
var (
	// ErrValidation 输入不完整或不合法（缺失指标、阈值 min > max 等）
	ErrValidation = errors.New("validation failed")

	// ErrAccessDenied 调用者对目标患者/报警无访问权限
	ErrAccessDenied = errors.New("access denied")

	// ErrNotFound 引用的报警/患者/阈值不存在
	ErrNotFound = errors.New("not found")

	// ErrAlreadyAcknowledged 报警已被确认，重复确认被拒绝
	ErrAlreadyAcknowledged = errors.New("alert already acknowledged")
)
