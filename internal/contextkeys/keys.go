package contextkeys

type contextKey string

const RequesterKey contextKey = "requester"
const RequestIDKey contextKey = "request_id"
