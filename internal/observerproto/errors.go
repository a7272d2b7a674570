package observerproto

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	// Layer routing.
	ErrUnknownLayer = "E_UNKNOWN_LAYER"
	ErrLayerEmpty   = "E_LAYER_EMPTY"

	ErrInternal = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest: {},
	ErrUnknownLayer:    {},
	ErrLayerEmpty:      {},
	ErrInternal:        {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
