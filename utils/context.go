package utils

type contextKey string

// Keys stored on request contexts by the HTTP layer.
const (
	RequestIDKey  contextKey = "request_id"
	UserAgentKey  contextKey = "user_agent"
	IPAddressKey  contextKey = "ip_address"
	EndpointKey   contextKey = "endpoint"
	TimeoutKey    contextKey = "timeout"
	CancelFuncKey contextKey = "cancel_func"
	UserIDKey     contextKey = "user_id"
)

// Keys of fiber locals set by the auth middleware.
const (
	UserIDLocal      = "user_id"
	AccessTokenLocal = "access_token"
	ClaimsLocal      = "token_claims"
)
