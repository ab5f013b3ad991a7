package stream

import (
	"bytes"
	"context"
	"sync"
	"tally/internal/providers"
	"tally/internal/services"
	"time"

	json "github.com/goccy/go-json"
)

const tickTimeout = 5 * time.Second

// Hub fans dashboard frames out to every connected subscriber. A frame is only
// broadcast when its encoding differs from the previous one.
type Hub struct {
	dashboard services.DashboardServiceInterface
	logger    providers.Logger
	metrics   providers.MetricsProviderInterface

	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	done       chan struct{}
	mutex      sync.RWMutex

	lastMu sync.Mutex
	last   []byte
}

func NewHub(dashboard services.DashboardServiceInterface, logger providers.Logger, metrics providers.MetricsProviderInterface) *Hub {
	hub := &Hub{
		dashboard:  dashboard,
		logger:     logger,
		metrics:    metrics,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 16),
		done:       make(chan struct{}),
	}
	go hub.run()
	return hub
}

func (hub *Hub) Size() int {
	hub.mutex.RLock()
	defer hub.mutex.RUnlock()
	return len(hub.clients)
}

func (hub *Hub) run() {
	for {
		select {
		case client := <-hub.register:
			hub.mutex.Lock()
			hub.clients[client] = true
			hub.mutex.Unlock()
			hub.metrics.SetStreamClients(hub.Size())
		case client := <-hub.unregister:
			hub.mutex.Lock()
			if _, exists := hub.clients[client]; exists {
				delete(hub.clients, client)
				close(client.send)
			}
			hub.mutex.Unlock()
			hub.metrics.SetStreamClients(hub.Size())
		case frame := <-hub.broadcast:
			// a subscriber that cannot keep up is dropped
			hub.mutex.Lock()
			for client := range hub.clients {
				select {
				case client.send <- frame:
				default:
					close(client.send)
					delete(hub.clients, client)
				}
			}
			hub.mutex.Unlock()
			hub.metrics.SetStreamClients(hub.Size())
		case <-hub.done:
			hub.mutex.Lock()
			for client := range hub.clients {
				close(client.send)
				delete(hub.clients, client)
			}
			hub.mutex.Unlock()
			hub.metrics.SetStreamClients(0)
			return
		}
	}
}

// Tick reads the dashboard and broadcasts it if it changed since the last tick.
func (hub *Hub) Tick() {
	if hub.Size() == 0 {
		return
	}
	frame, err := hub.Current()
	if err != nil {
		hub.logger.Errorf(providers.TypeApp, "Error while building stream frame: %s", err)
		return
	}

	hub.lastMu.Lock()
	changed := !bytes.Equal(frame, hub.last)
	if changed {
		hub.last = frame
	}
	hub.lastMu.Unlock()
	if !changed {
		return
	}

	select {
	case hub.broadcast <- frame:
	case <-hub.done:
	}
}

// Current encodes the dashboard as it is now.
func (hub *Hub) Current() ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), tickTimeout)
	defer cancel()

	dashboard, err := hub.dashboard.GetDashboard(ctx)
	if err != nil {
		return nil, err
	}
	return json.Marshal(dashboard)
}

func (hub *Hub) Close() {
	select {
	case <-hub.done:
	default:
		close(hub.done)
	}
}
