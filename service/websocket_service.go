package service

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tieubaoca/docrag-be/types"
)

type WebSocketService struct {
	query    *QueryService
	upgrader websocket.Upgrader
}

func NewWebSocketService(query *QueryService) *WebSocketService {
	return &WebSocketService{
		query: query,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins (adjust for production)
			},
		},
	}
}

// HandleAsk upgrades the connection and serves ask requests over it until
// the client goes away.
func (s *WebSocketService) HandleAsk(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("Upgrade error:", err)
		return
	}
	defer conn.Close()

	conn.SetReadLimit(512 * 1024) // 512KB max message size
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	for {
		_, p, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket read error: %v", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))

		var req types.WebsocketRequest
		if err := json.Unmarshal(p, &req); err != nil {
			s.writeError(conn, "invalid message")
			log.Println("Unmarshal error:", err)
			continue
		}
		payloadBytes, err := json.Marshal(req.Payload)
		if err != nil {
			s.writeError(conn, "invalid payload")
			log.Println("Marshal error:", err)
			continue
		}

		switch req.Type {
		case types.TypeWebsocketAsk:
			var payload types.WebsocketAskPayload
			if err := json.Unmarshal(payloadBytes, &payload); err != nil {
				s.writeError(conn, "invalid ask payload")
				log.Println("Unmarshal error:", err)
				continue
			}
			// Retrieval plus generation can take a while; acknowledge the
			// question first so clients can show progress.
			ack := types.WebsocketResponse{
				Type: types.TypeWebsocketProcessing,
			}
			if err := conn.WriteJSON(ack); err != nil {
				log.Println("Write error:", err)
				continue
			}
			res, err := s.query.Ask(ctx, types.QueryRequest{
				Question: payload.Question,
				TopK:     payload.TopK,
				Tags:     payload.Tags,
			})
			if err != nil {
				log.Println("Ask error:", err)
				s.writeError(conn, "failed to answer question")
				continue
			}
			response := types.WebsocketResponse{
				Type:    types.TypeWebsocketAsk,
				Payload: res,
			}
			if err := conn.WriteJSON(response); err != nil {
				log.Println("Write error:", err)
				continue
			}
		case types.TypeWebsocketPing:
			pong := types.WebsocketResponse{
				Type: types.TypeWebsocketPong,
			}
			if err := conn.WriteJSON(pong); err != nil {
				log.Println("Write error:", err)
			}
		default:
			log.Println("Invalid message type:", req.Type)
		}
	}
}

func (s *WebSocketService) writeError(conn *websocket.Conn, message string) {
	res := types.WebsocketResponse{
		Type:    types.TypeWebsocketError,
		Payload: message,
	}
	if err := conn.WriteJSON(res); err != nil {
		log.Println("Write error:", err)
	}
}
