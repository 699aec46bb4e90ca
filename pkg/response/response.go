package response

// New generic response spec
type APIResponseCode int

const (
	APIResponseCodeOK           APIResponseCode = 0
	APIResponseCodeBadRequest   APIResponseCode = 40000
	APIResponseCodeUnauthorized APIResponseCode = 40100
	// APIResponseCodeNotFound covers unknown confirmation links and
	// subscriptions; the UI renders it as "invalid link".
	APIResponseCodeNotFound APIResponseCode = 40400
	// APIResponseCodeAlreadyProcessed is informational: the customer's
	// decision already went through (for example after a double click).
	APIResponseCodeAlreadyProcessed APIResponseCode = 40900
	// APIResponseCodeExpired is distinct from not-found so the UI can offer
	// "request a new link".
	APIResponseCodeExpired APIResponseCode = 41000
	APIResponseCodeError   APIResponseCode = 50000
)

var codeToMsg = map[APIResponseCode]string{
	APIResponseCodeOK:               "ok",
	APIResponseCodeBadRequest:       "unexpected error",
	APIResponseCodeUnauthorized:     "unauthorized",
	APIResponseCodeNotFound:         "not found",
	APIResponseCodeAlreadyProcessed: "already processed",
	APIResponseCodeExpired:          "expired",
}

// APIResponse is the generic response envelope used by HTTP APIs.
// Use OKT / ErrorT helpers to construct instances.
type APIResponse[T any] struct {
	Code    APIResponseCode `json:"code"`
	Message string          `json:"message"`
	Data    T               `json:"data"`
}

// OKT returns a successful response with data.
func OKT[T any](data T) *APIResponse[T] {
	return &APIResponse[T]{Code: APIResponseCodeOK, Message: codeToMsg[APIResponseCodeOK], Data: data}
}

// ErrorT returns an error response with message and optional data.
func ErrorT[T any](code APIResponseCode, data T) *APIResponse[T] {
	return &APIResponse[T]{Code: code, Message: codeToMsg[code], Data: data}
}
