package server

// Message is the envelope every WebSocket text message carries.
type Message struct {
	Type string `json:"type"`
}

// FrameMessage answers one binary frame.
type FrameMessage struct {
	Type string `json:"type"`
	Seq  uint64 `json:"seq"`
	Hash string `json:"hash"`
	// Distance to the last distinct frame, -1 for the first frame.
	Distance int  `json:"distance"`
	Similar  bool `json:"similar"`
}

type ResetMessage struct {
	Type string `json:"type"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// HashResponse is the body of POST /api/hash.
type HashResponse struct {
	Hash   string `json:"hash"`
	Bits   int    `json:"bits"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Format string `json:"format"`
}

// DistanceRequest is the body of POST /api/distance.
type DistanceRequest struct {
	A string `json:"a"`
	B string `json:"b"`
}

type DistanceResponse struct {
	Distance   int     `json:"distance"`
	Bits       int     `json:"bits"`
	Similarity float64 `json:"similarity"`
}

type HealthResponse struct {
	Status      string `json:"status"`
	Config      string `json:"config"`
	Connections int64  `json:"connections"`
}

// ErrorResponse is the JSON body of every failed API call.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}
