package errcode

// 错误码约定：
// - 0：无错误
// - 4xxx：业务可恢复/预期内结果（容量已满、图片不存在等，不算异常）
// - 5xxx：系统错误（需要中断流程）
const (
	OK = 0

	InputUnavailable  = 4001
	UnsupportedFormat = 4002
	ParseEmpty        = 4003
	GalleryNotFound   = 4004
	GalleryExists     = 4005
	ImageNotFound     = 4006
	CapacityExceeded  = 4007
	DuplicateImage    = 4008

	SystemError        = 5000
	PersistenceFailure = 5001
)
