package xerrors

var (
	// ErrAlphabetViolation 输入字符不在字母表范围内。
	ErrAlphabetViolation = New(ErrInvalidArg, 410001, "alphabet violation", "character outside the configured alphabet", nil)
	// ErrInvalidRange 字母表区间非法。
	ErrInvalidRange = New(ErrInvalidArg, 410002, "invalid range", "range begin must not exceed range end", nil)
	// ErrAlphabetTooLarge 字母表符号数超过上限。
	ErrAlphabetTooLarge = New(ErrLimitExceeded, 410003, "alphabet too large", "alphabet exceeds the maximum number of symbols", nil)
	// ErrKeyNotFound 键或路径不存在。
	ErrKeyNotFound = New(ErrNotFound, 410004, "key not found", "", nil)
	// ErrAlreadyPresent 键已存在。
	ErrAlreadyPresent = New(ErrAlreadyExists, 410005, "key already present", "", nil)
	// ErrStaleCursor 游标已失效（游走失败或字典树已被修改）。
	ErrStaleCursor = New(ErrInvalidArg, 410006, "stale cursor", "cursor was invalidated by a failed walk or a trie mutation", nil)
	// ErrObjectNotFound 对象存储中不存在指定对象。
	ErrObjectNotFound = New(ErrNotFound, 410007, "object not found", "", nil)
	// ErrCorruptState 持久化数据损坏：魔数、版本、校验和或结构不一致。
	ErrCorruptState = New(ErrDataLoss, 510001, "corrupt persisted state", "", nil)
	// ErrMissingState 持久化文件缺失或不可读。
	ErrMissingState = New(ErrUnavailable, 510002, "missing persisted state", "", nil)
	// ErrCapacityExhausted 双数组无法继续扩展。
	ErrCapacityExhausted = New(ErrInternal, 510003, "capacity exhausted", "double-array pool cannot grow any further", nil)
)
