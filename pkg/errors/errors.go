package errors

import "errors"

var (
	// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
	ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

	// ErrLockBusy 同一单元正在被其他请求写入
	ErrLockBusy = errors.New("该单元正在被其他操作保存，请稍后重试")
)
