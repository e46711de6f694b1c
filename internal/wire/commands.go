package wire

// Command name constants used as Message.Command / Header.Command values.
const (
	CmdVersion = "version"
	CmdVerAck  = "verack"
	CmdAddr    = "addr"
	CmdInv     = "inv"
	CmdGetData = "getdata"
	CmdObject  = "object"
	CmdPing    = "ping"
	CmdPong    = "pong"
	CmdError   = "error"
)
