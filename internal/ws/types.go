package ws

const (
	// client - server
	MsgPing    = "ping"
	MsgRefresh = "refresh"

	// server - client
	MsgReady  = "ready"
	MsgPong   = "pong"
	MsgStatus = "status"
	MsgError  = "error"
)
