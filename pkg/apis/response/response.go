package response

import (
	"encoding/json"
	"fmt"
	"strings"
)

type responseError struct {
	Code    ErrCode `json:"code"`
	Message string  `json:"message"`
	Err     error   `json:"-"`
}

func (re *responseError) Error() string {
	if re.Err != nil {
		return fmt.Sprintf("%d %s: %v", re.Code, re.Message, re.Err)
	}
	return fmt.Sprintf("%d %s", re.Code, re.Message)
}

func (re *responseError) Unwrap() error {
	return re.Err
}

// MultiError is the body of every failed API call: {"errors":[{"code":...,"message":...}]}.
type MultiError struct {
	errors []*responseError
}

func NewMultiError(errs ...*responseError) *MultiError {
	return &MultiError{errors: errs}
}

// Codes lists the error codes in the order they were reported.
func (e *MultiError) Codes() []ErrCode {
	codes := make([]ErrCode, 0, len(e.errors))
	for _, err := range e.errors {
		codes = append(codes, err.Code)
	}
	return codes
}

func (e *MultiError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Errors []*responseError `json:"errors"`
	}{
		Errors: e.errors,
	})
}

func (e *MultiError) UnmarshalJSON(bytes []byte) error {
	body := struct {
		Errors []*responseError `json:"errors"`
	}{}
	if err := json.Unmarshal(bytes, &body); err != nil {
		return err
	}
	e.errors = append(e.errors, body.Errors...)
	return nil
}

func (e *MultiError) Error() string {
	es := make([]string, 0, len(e.errors))
	for _, err := range e.errors {
		es = append(es, err.Error())
	}
	return strings.Join(es, "; ")
}

func generateError(code ErrCode, s ...interface{}) *responseError {
	return generateErrorWrapper(code, nil, s...)
}

func generateErrorWrapper(code ErrCode, err error, s ...interface{}) *responseError {
	return &responseError{
		Code:    code,
		Message: fmt.Sprintf(errors[code], s...),
		Err:     err,
	}
}
