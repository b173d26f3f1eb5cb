package protocol

const (
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"
	ErrProtoVersion    = "E_PROTO_VERSION"
	ErrReadOnly        = "E_READ_ONLY"
	ErrBusy            = "E_BUSY"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrProtoVersion:    {},
	ErrReadOnly:        {},
	ErrBusy:            {},
}

func IsKnownCode(code string) bool {
	_, ok := knownCodes[code]
	return ok
}

func NewError(code, message string) ErrorMsg {
	return ErrorMsg{Type: TypeError, ProtocolVersion: Version, Code: code, Message: message}
}
