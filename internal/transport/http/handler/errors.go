package handler

const (
	errInternalServer = "Internal server error"
	errTokenFailed    = "Could not obtain vendor access token"
)
