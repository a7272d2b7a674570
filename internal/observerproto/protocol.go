package observerproto

// Version is the observer protocol version.
const Version = "0.1"

// Layer kinds.
const (
	KindScalar = "scalar"
	KindLabels = "labels"
	KindPoints = "points"
)

// Grid encodings. Both are row-major, x fastest.
//   - "RLE_Q8": scalar values quantised to 0..255, then RLE (see internal/encoding).
//   - "RLE_U16": label ids as-is, then RLE.
const (
	EncodingQ8  = "RLE_Q8"
	EncodingU16 = "RLE_U16"
)

// Client -> Server. First message on the observer WS connection; may be
// re-sent to request another layer.
type SubscribeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Layer           string `json:"layer"`
}

// HTTP response for GET /v1/bootstrap.
type BootstrapResponse struct {
	ProtocolVersion string      `json:"protocol_version"`
	WorldParams     WorldParams `json:"world_params"`
	Layers          []LayerInfo `json:"layers"`
	BiomePalette    []Swatch    `json:"biome_palette"`
	ResourceKinds   []Swatch    `json:"resource_kinds"`
}

type WorldParams struct {
	Seed   int64  `json:"seed"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Digest string `json:"digest"`
}

type LayerInfo struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// Swatch colours are "#rrggbb" or "#rrggbbaa".
type Swatch struct {
	ID    uint16 `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Server -> Client. One full layer. Grid layers carry Encoding and Data;
// point layers carry Points.
type LayerMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Layer           string `json:"layer"`
	Kind            string `json:"kind"`
	Width           int    `json:"width"`
	Height          int    `json:"height"`

	Encoding string `json:"encoding,omitempty"`
	Data     string `json:"data,omitempty"`

	Points []Point `json:"points,omitempty"`
}

type Point struct {
	X       int    `json:"x"`
	Y       int    `json:"y"`
	Payload uint16 `json:"payload"`
}

// Server -> Client. Sent instead of a LAYER frame when a subscription
// cannot be served; the connection stays open.
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}
