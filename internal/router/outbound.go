package router

// Outbound message types understood by the game server.
const (
	CmdJoin         = "join"
	CmdReady        = "ready"
	CmdWordComplete = "wordComplete"
	CmdRoomStatus   = "roomStatus"
)

// Command is a client-to-server frame.
type Command struct {
	Type    string `json:"type"`
	Content any    `json:"content,omitempty"`
}

// JoinRoom asks the server to place this client in room.
func JoinRoom(room string) Command {
	return Command{Type: CmdJoin, Content: map[string]string{"room": room}}
}

// Ready marks this client ready; the game starts once every player is ready.
func Ready() Command {
	return Command{Type: CmdReady}
}

// WordComplete reports the next typed word.
func WordComplete(word string) Command {
	return Command{Type: CmdWordComplete, Content: map[string]string{"word": word}}
}

// RequestRoomStatus asks the server to rebroadcast the roster.
func RequestRoomStatus() Command {
	return Command{Type: CmdRoomStatus}
}
