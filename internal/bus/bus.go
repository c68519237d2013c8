// Package bus connects sage to a websocket hub: chat messages go out to
// whatever UI renders them, transcripts captured elsewhere come in.
package bus

import (
	"encoding/json"
	"net/url"
	"sync"

	log "log/slog"

	"github.com/gorilla/websocket"

	"sage/internal/chat"
	"sage/internal/triage"
)

const (
	Self = "sage"
	UI   = "ui"
)

// Incoming frame kinds.
const (
	KindUtterance = "utterance" // explicit capture in a remote client
	KindHeard     = "heard"     // ambient capture in a remote client
)

type Message struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Kind    string `json:"kind"`
	Role    string `json:"role,omitempty"`
	Content string `json:"content"`
}

type Bus struct {
	conn *websocket.Conn
	wmu  sync.Mutex
}

func Dial(wsURL string) (*Bus, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, err
	}

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, err
	}

	log.Info("Connected to bus", "url", wsURL)
	return &Bus{conn: conn}, nil
}

func (b *Bus) Close() error {
	return b.conn.Close()
}

func (b *Bus) Read() (*Message, error) {
	_, data, err := b.conn.ReadMessage()
	if err != nil {
		return nil, err
	}

	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (b *Bus) Write(m *Message) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}

	b.wmu.Lock()
	defer b.wmu.Unlock()
	return b.conn.WriteMessage(websocket.TextMessage, data)
}

// Render publishes msg to the UI. It implements chat.Renderer.
func (b *Bus) Render(msg chat.Message) {
	err := b.Write(&Message{
		From:    Self,
		To:      UI,
		Kind:    string(msg.Kind),
		Role:    string(msg.From),
		Content: msg.Text,
	})
	if err != nil {
		log.Warn("Failed to publish chat message", "kind", msg.Kind, "err", err)
	}
}

// Utterance converts an incoming frame addressed to sage into an utterance.
func Utterance(m *Message) (triage.Utterance, bool) {
	if m == nil || (m.To != "" && m.To != Self) {
		return triage.Utterance{}, false
	}
	switch m.Kind {
	case KindUtterance:
		return triage.Utterance{Text: m.Content, Explicit: true}, true
	case KindHeard:
		return triage.Utterance{Text: m.Content}, true
	default:
		return triage.Utterance{}, false
	}
}
