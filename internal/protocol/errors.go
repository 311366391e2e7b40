package protocol

// Error codes sent in ERROR messages.
const (
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"

	ErrBadRequest       = "E_BAD_REQUEST"
	ErrLayerOutOfRange  = "E_LAYER_OUT_OF_RANGE"
	ErrMissingLayerData = "E_MISSING_LAYER_DATA"
	ErrNotScanned       = "E_NOT_SCANNED"
	ErrInternal         = "E_INTERNAL"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest:  {},
	ErrBadRequest:       {},
	ErrLayerOutOfRange:  {},
	ErrMissingLayerData: {},
	ErrNotScanned:       {},
	ErrInternal:         {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
