package util

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
)

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

// 文件上传相关常量
const (
	MimePDF         = "application/pdf"
	MimeOctetStream = "application/octet-stream"
)

var (
	// 允许上传的交付物文件类型
	AllowedDeliverableExtensions = []string{".pdf", ".doc", ".docx", ".zip", ".tar.gz"}
)
