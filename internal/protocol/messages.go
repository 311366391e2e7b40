package protocol

import "strata.dev/internal/coords"

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ClientName      string `json:"client_name,omitempty"`
}

// META (server -> client): what the session holds.
type MetaMsg struct {
	Type            string        `json:"type"`
	ProtocolVersion string        `json:"protocol_version"`
	ScanID          string        `json:"scan_id,omitempty"`
	Volume          coords.Volume `json:"volume"`
	Voxels          int64         `json:"voxels"`
	MaxOffset       int           `json:"max_offset"`
	Tally           []CountEntry  `json:"tally"`
}

// RENDER (client -> server)
type RenderMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
	ReqID           string `json:"req_id,omitempty"`
	Offset          int    `json:"offset"`
	Hollow          bool   `json:"hollow"`
}

// LAYER (server -> client). The PNG follows in the next binary frame.
type LayerMsg struct {
	Type            string       `json:"type"`
	ProtocolVersion string       `json:"protocol_version"`
	ReqID           string       `json:"req_id,omitempty"`
	Y               int          `json:"y"`
	Offset          int          `json:"offset"`
	Hollow          bool         `json:"hollow"`
	Width           int          `json:"width"`
	Height          int          `json:"height"`
	Enumerations    []CountEntry `json:"enumerations"`
	MissingTextures []string     `json:"missing_textures"`
	PNGBytes        int          `json:"png_bytes"`
}

type CountEntry struct {
	Type  string `json:"type"`
	Count int64  `json:"count"`
}

type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ReqID           string `json:"req_id,omitempty"`
	Code            string `json:"code"`
	Message         string `json:"message"`
}
