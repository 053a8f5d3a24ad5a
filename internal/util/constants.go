package util

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
)

// 会话请求的默认与上限
const (
	DefaultMaxItems = 20
	MaxSessionItems = 100
)
