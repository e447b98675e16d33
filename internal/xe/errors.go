package xe

import "github.com/go-orz/orz"

var (
	ErrInvalidParams   = orz.NewError(10400, "参数无效")
	ErrNotFound        = orz.NewError(10404, "数据不存在")
	ErrCycleInProgress = orz.NewError(10409, "扫描正在执行，请稍后再试")
	ErrNoPublishedScan = orz.NewError(10001, "尚未发布任何扫描结果")
	ErrUnknownSymbol   = orz.NewError(10002, "该交易对没有ATH记录")
)
