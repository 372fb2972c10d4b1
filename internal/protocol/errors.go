package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"
	ErrTooLarge        = "E_TOO_LARGE"

	// Document layer.
	ErrBadRequest    = "E_BAD_REQUEST"
	ErrSchema        = "E_SCHEMA"
	ErrInvalidTarget = "E_INVALID_TARGET"

	// Encoder.
	ErrBadLiteral = "E_BAD_LITERAL"
	ErrBadElement = "E_BAD_ELEMENT"
	// ErrStringLimit extends the converter's failures: a name or string
	// longer than 65535 bytes.
	ErrStringLimit = "E_STRING_LIMIT"
	ErrInternal    = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrTooLarge:        {},
	ErrBadRequest:      {},
	ErrSchema:          {},
	ErrInvalidTarget:   {},
	ErrBadLiteral:      {},
	ErrBadElement:      {},
	ErrStringLimit:     {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
