package httpapi

// Result response envelope for every JSON endpoint.
// The HTTP status carries the outcome; code mirrors it for clients that only read the body.
//   - code: ResultSuccess on success, ResultError otherwise
//   - type: "success" | "error"
//   - message: "ok" or the error description
//   - result: payload, null on error
type Result[T any] struct {
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
	Result  T      `json:"result"`
}

const (
	ResultSuccess = 2000
	ResultError   = -1
)

func Ok[T any](result T) Result[T] {
	return Result[T]{Code: ResultSuccess, Type: "success", Message: "ok", Result: result}
}

func Fail(message string) Result[any] {
	return Result[any]{Code: ResultError, Type: "error", Message: message, Result: nil}
}
