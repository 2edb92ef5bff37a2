package dto

// Response is the envelope around every JSON body the API returns
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
}

type ErrorInfo struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func OK(data any) Response {
	return Response{Success: true, Data: data}
}

// Fail wraps error details; RequestID may be empty
func Fail(info ErrorInfo) Response {
	return Response{Error: &info}
}
