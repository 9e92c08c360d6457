package contextkeys

type contextKey string

const (
	ActorKey     contextKey = "Actor"
	TokenIDKey   contextKey = "TokenID"
	TokenExpKey  contextKey = "TokenExp"
	RequestIDKey contextKey = "RequestID"
)
