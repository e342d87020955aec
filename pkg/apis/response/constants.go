package response

type ErrCode int

const (
	_                      ErrCode = 10000 + iota
	ErrCodeMalformedJSON           // 10001
	ErrCodeRequestBody             // 10002
	ErrCodeInvalidArgument         // 10003
	ErrCodeBusTimeout              // 10004
	ErrCodeBusException            // 10005
	ErrCodeBusFault                // 10006
)

// !!! IMPORTANT PLEASE READ FIRST !!!
// You SHOULD add new code at the end, and append comment of number
// Meanwhile, the corresponding error message SHOULD be appended in response.errors
// The order MUST be consistent between them
