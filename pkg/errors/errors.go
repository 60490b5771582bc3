package errors

import "errors"

// ErrOptimisticLock 乐观锁冲突：version 已被并发请求推进（里程碑、项目更新）
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")
