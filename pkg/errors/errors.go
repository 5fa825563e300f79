package errors

import "errors"

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
// 库存计数的读-校验-写循环重试耗尽后以此错误上浮
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")
