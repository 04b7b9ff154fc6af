package domain

type CtxKey string

// KeyRequestID is the gin context key holding the request ID.
const KeyRequestID CtxKey = "RequestID"
