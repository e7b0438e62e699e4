package types

const (
	TypeWebsocketPing       = "ping"
	TypeWebsocketPong       = "pong"
	TypeWebsocketAsk        = "ask"
	TypeWebsocketProcessing = "processing"
	TypeWebsocketError      = "error"
)

type WebsocketRequest struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type WebsocketAskPayload struct {
	Question string   `json:"question"`
	Tags     []string `json:"tags,omitempty"`
	TopK     int      `json:"top_k,omitempty"`
}

type WebsocketResponse struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Message represents a single message in a model conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// StreamHandler receives incremental model output.
type StreamHandler func(response string)
