package realtime

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"feedboard/domain"
)

// sendBuffer bounds the per-connection outbound queue. Events beyond a
// full buffer are dropped for that connection only.
const sendBuffer = 16

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wireEvent is the frame written to each client: the post snapshot for
// create/update, only the id string for delete.
type wireEvent struct {
	Action string `json:"action"`
	Post   any    `json:"post"`
}

func toWire(ev domain.PostEvent) wireEvent {
	w := wireEvent{Action: ev.Action}
	if ev.Post != nil {
		w.Post = ev.Post
	} else {
		w.Post = ev.PostID
	}
	return w
}

// Gateway upgrades HTTP connections and relays hub events to them.
type Gateway struct {
	hub *Hub
	log *log.Logger
}

func NewGateway(hub *Hub, logger *log.Logger) *Gateway {
	if logger == nil {
		logger = log.New("realtime")
	}
	return &Gateway{hub: hub, log: logger}
}

// Handle serves one websocket client until it disconnects. The handler
// never returns an echo error after a successful upgrade; the response
// has already been hijacked by then.
func (g *Gateway) Handle(c echo.Context) error {
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		g.log.Errorf("problem initiating websocket: %v", err)
		return nil
	}

	send := make(chan domain.PostEvent, sendBuffer)
	unsub := g.hub.Subscribe(func(ev domain.PostEvent) {
		select {
		case send <- ev:
		default:
			// Slow client; this event is lost for it.
		}
	})
	defer unsub()

	quit := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case ev := <-send:
				if err := ws.WriteJSON(toWire(ev)); err != nil {
					return
				}
			case <-quit:
				return
			}
		}
	}()

	// Inbound frames are discarded; reading only detects the close.
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}

	close(quit)
	<-done
	return ws.Close()
}
