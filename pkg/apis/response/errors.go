package response

import (
	stderrors "errors"
	"net/http"
	"rs485motor/pkg/runtime/constant"
)

var errors = map[ErrCode]string{
	ErrCodeMalformedJSON:   "The JSON you provided was not well-formed or did not validate against our published format.",
	ErrCodeRequestBody:     "Request body error",
	ErrCodeInvalidArgument: "Invalid argument %s.",
	ErrCodeBusTimeout:      "The motor controller did not answer in time.",
	ErrCodeBusException:    "The motor controller rejected the request: %s.",
	ErrCodeBusFault:        "RS-485 bus transaction failed: %s.",
}

// !!! IMPORTANT PLEASE READ FIRST !!!
// You SHOULD add new code at the end of enum firstly.

var ErrMalformedJSON = &responseError{
	Code:    ErrCodeMalformedJSON,
	Message: errors[ErrCodeMalformedJSON],
}

var ErrRequestBody = &responseError{
	Code:    ErrCodeRequestBody,
	Message: errors[ErrCodeRequestBody],
}

func ErrInvalidArgument(argument string) *responseError {
	return generateError(ErrCodeInvalidArgument, argument)
}

// BusError maps a failed bus transaction to an HTTP status and a response body.
func BusError(err error) (int, *MultiError) {
	var exception *constant.ExceptionError
	switch {
	case stderrors.Is(err, constant.ErrTimeout):
		return http.StatusGatewayTimeout, NewMultiError(generateErrorWrapper(ErrCodeBusTimeout, err))
	case stderrors.As(err, &exception):
		return http.StatusUnprocessableEntity, NewMultiError(generateErrorWrapper(ErrCodeBusException, err, constant.ExceptionCodeToString(exception.Code)))
	case stderrors.Is(err, constant.ErrInvalidQuantity):
		return http.StatusBadRequest, NewMultiError(generateErrorWrapper(ErrCodeInvalidArgument, err, "count"))
	}
	return http.StatusBadGateway, NewMultiError(generateErrorWrapper(ErrCodeBusFault, err, err.Error()))
}
