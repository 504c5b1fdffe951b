package service

import "errors"

// ErrorKind 业务错误类别，交由接入层映射为响应码
type ErrorKind string

const (
	KindNotFound           ErrorKind = "not_found"
	KindInvalidState       ErrorKind = "invalid_state"
	KindInvalidRange       ErrorKind = "invalid_range"
	KindExpired            ErrorKind = "expired"
	KindNoItems            ErrorKind = "no_items"
	KindSelfQuotation      ErrorKind = "self_quotation"
	KindDuplicateQuotation ErrorKind = "duplicate_quotation"
	KindQuotaExceeded      ErrorKind = "quota_exceeded"
)

// Error 业务错误。Kind用于分类，LimitType仅配额超限时携带
type Error struct {
	Kind      ErrorKind
	Message   string
	LimitType string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func newQuotaError(limitType, message string) *Error {
	return &Error{Kind: KindQuotaExceeded, Message: message, LimitType: limitType}
}

// AsError 取出业务错误，非业务错误返回nil
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}

// IsKind 判断错误是否为指定业务类别
func IsKind(err error, kind ErrorKind) bool {
	if e := AsError(err); e != nil {
		return e.Kind == kind
	}
	return false
}
