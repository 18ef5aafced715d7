package websocket

import "github.com/rs/zerolog/log"

// publication is a message addressed to a topic; the empty topic reaches only
// clients subscribed to everything.
type publication struct {
	topic string
	data  []byte
}

type directMessage struct {
	client *Client
	data   []byte
}

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// Outbound messages, fanned out by the Run loop.
	broadcast chan publication

	// Messages addressed to a single client.
	direct chan directMessage

	// Register requests from the clients.
	Register chan *Client

	// Unregister requests from clients.
	Unregister chan *Client

	done    chan struct{}
	stopped chan struct{}
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan publication, 256),
		direct:     make(chan directMessage, 64),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		done:       make(chan struct{}),
		stopped:    make(chan struct{}),
	}
}

// Run starts the Hub's message processing loop. It returns after Stop.
func (h *Hub) Run() {
	defer close(h.stopped)
	for {
		select {
		case <-h.done:
			for client := range h.clients {
				close(client.Send)
				delete(h.clients, client)
			}
			return
		case client := <-h.Register:
			h.clients[client] = true
			log.Info().Int("total_clients", len(h.clients)).Str("topic", client.Topic).Msg("Feed client connected")
		case client := <-h.Unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				log.Info().Int("total_clients", len(h.clients)).Msg("Feed client disconnected")
			}
		case msg := <-h.direct:
			if _, ok := h.clients[msg.client]; !ok {
				continue
			}
			select {
			case msg.client.Send <- msg.data:
			default:
			}
		case pub := <-h.broadcast:
			for client := range h.clients {
				if client.Topic != "" && client.Topic != pub.topic {
					continue
				}
				select {
				case client.Send <- pub.data:
				default:
					// Slow consumer; drop it rather than stall the feed.
					close(client.Send)
					delete(h.clients, client)
				}
			}
		}
	}
}

// Stop terminates the Run loop, closes every client send channel and waits
// for Run to return. Run must have been started.
func (h *Hub) Stop() {
	close(h.done)
	<-h.stopped
}

// Publish queues a feed message for clients following topic and for clients
// following everything. It never blocks: when the queue is full the message is dropped.
func (h *Hub) Publish(topic, action string, payload interface{}) {
	select {
	case h.broadcast <- publication{topic: topic, data: NewMessage(action, payload)}:
	default:
		log.Warn().Str("action", action).Str("topic", topic).Msg("Feed queue full, dropping message")
	}
}

// SendTo queues data for a single registered client. Messages for clients the
// hub no longer knows are discarded.
func (h *Hub) SendTo(client *Client, data []byte) {
	select {
	case h.direct <- directMessage{client: client, data: data}:
	case <-h.done:
	default:
		log.Warn().Str("topic", client.Topic).Msg("Direct queue full, dropping message")
	}
}

// Join registers client, giving up if the hub has been stopped.
func (h *Hub) Join(client *Client) bool {
	select {
	case h.Register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Leave unregisters client, giving up if the hub has been stopped.
func (h *Hub) Leave(client *Client) {
	select {
	case h.Unregister <- client:
	case <-h.done:
	}
}
