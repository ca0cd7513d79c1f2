package live

import (
	"encoding/json"
	"log"
	"sync"
)

// Event - сообщение, рассылаемое подписчикам комнаты турнира.
type Event struct {
	Type    string      `json:"type"` // MATCH_PROPOSED, MATCH_UPDATED, MATCH_COMPLETED, STANDINGS_UPDATED
	Payload interface{} `json:"payload"`
	RoomID  string      `json:"room_id,omitempty"`
}

// Hub держит подписки клиентов по комнатам. Одна комната - один турнир.
type Hub struct {
	Register   chan *Client
	Unregister chan *Client
	rooms      map[string]map[*Client]bool
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		rooms:      make(map[string]map[*Client]bool),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			if _, ok := h.rooms[client.Room]; !ok {
				h.rooms[client.Room] = make(map[*Client]bool)
			}
			h.rooms[client.Room][client] = true
			h.mu.Unlock()

		case client := <-h.Unregister:
			h.mu.Lock()
			if clients, ok := h.rooms[client.Room]; ok {
				if _, okClient := clients[client]; okClient {
					client.closeSend()
					delete(clients, client)
					if len(clients) == 0 {
						delete(h.rooms, client.Room)
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastEvent сериализует событие и рассылает его комнате.
// Ошибки доставки отдельным клиентам не блокируют остальных.
func (h *Hub) BroadcastEvent(roomID, eventType string, payload interface{}) {
	message, err := json.Marshal(Event{Type: eventType, Payload: payload, RoomID: roomID})
	if err != nil {
		log.Printf("live: failed to marshal %s event for room %s: %v", eventType, roomID, err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.rooms[roomID] {
		client.Mu.Lock()
		if !client.IsClosed {
			select {
			case client.Send <- message:
			default:
				// Канал клиента переполнен: событие пропускается,
				// клиент догонит состояние при следующем чтении.
			}
		}
		client.Mu.Unlock()
	}
}
