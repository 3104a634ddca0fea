package god

import "fmt"

// 通知码
// 100/101 为连接类错误，300 以上为服务器返回的业务失败。
const (
	CodeLostConnection        = 100
	CodeLostExhibitConnection = 101

	CodeReconnected = 200

	CodeLocationNotFound = 300
	CodeLocationCreated  = 301
	CodeLocationUpdated  = 302

	CodeUserNotFound = 400
	CodeUserCreated  = 401
	CodeUserUpdated  = 402

	CodeInvalidToken = 500
	CodeLoginFailed  = 501
)

// failureThreshold 响应码大于等于该值表示业务失败
const failureThreshold = 300

// IsDomainFailure 响应码是否为业务失败
func IsDomainFailure(code int) bool {
	return code >= failureThreshold
}

// Error 服务器返回的业务失败
type Error struct {
	Code int
	Text string
}

func (e *Error) Error() string {
	return fmt.Sprintf("god error %d: %s", e.Code, e.Text)
}
