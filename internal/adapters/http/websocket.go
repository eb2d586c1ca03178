package http

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"
)

const wsPingInterval = 30 * time.Second

// wsCommand is a client request to change the event feed.
type wsCommand struct {
	Action   string `json:"action"`   // subscribe | unsubscribe
	Channel  string `json:"channel"`  // completed | matches | all
	Workflow string `json:"workflow"` // "" matches every workflow
}

// wsSubject maps a channel and workflow filter onto a NATS subject.
func wsSubject(channel, workflow string) (string, bool) {
	wf := workflow
	if wf == "" {
		wf = "*"
	}
	switch channel {
	case "", "all":
		if workflow == "" {
			return "probe.scan.>", true
		}
		return "probe.scan.*." + wf, true
	case "completed":
		return "probe.scan.completed." + wf, true
	case "matches":
		return "probe.scan.match." + wf, true
	}
	return "", false
}

// wsSession relays NATS messages to one client. Writes from NATS callbacks,
// the ping loop and the command loop are serialised by mu.
type wsSession struct {
	conn *websocket.Conn
	nc   *nats.Conn
	log  *slog.Logger

	mu   sync.Mutex
	subs map[string]*nats.Subscription
}

func (s *wsSession) send(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *wsSession) reply(kind, text, subject string) {
	msg := map[string]string{kind: text}
	if subject != "" {
		msg["subject"] = subject
	}
	s.send(msg)
}

func (s *wsSession) relay(msg *nats.Msg) {
	s.send(struct {
		Subject string          `json:"subject"`
		Event   json.RawMessage `json:"event"`
	}{msg.Subject, msg.Data})
}

func (s *wsSession) subscribe(subject string) error {
	if _, ok := s.subs[subject]; ok {
		s.reply("status", "already subscribed", subject)
		return nil
	}
	sub, err := s.nc.Subscribe(subject, s.relay)
	if err != nil {
		return err
	}
	s.subs[subject] = sub
	s.reply("status", "subscribed", subject)
	return nil
}

func (s *wsSession) unsubscribe(subject string) {
	sub, ok := s.subs[subject]
	if !ok {
		s.reply("error", "not subscribed to "+subject, "")
		return
	}
	_ = sub.Unsubscribe()
	delete(s.subs, subject)
	s.reply("status", "unsubscribed", subject)
}

func (s *wsSession) handle(raw []byte) {
	var cmd wsCommand
	if err := json.Unmarshal(raw, &cmd); err != nil {
		s.reply("error", "invalid JSON", "")
		return
	}
	subject, ok := wsSubject(cmd.Channel, cmd.Workflow)
	if !ok {
		s.reply("error", "unknown channel: "+cmd.Channel, "")
		return
	}
	switch cmd.Action {
	case "subscribe":
		if err := s.subscribe(subject); err != nil {
			s.reply("error", "subscribe failed: "+err.Error(), "")
		}
	case "unsubscribe":
		s.unsubscribe(subject)
	default:
		s.reply("error", "unknown action: "+cmd.Action, "")
	}
}

func (s *wsSession) keepAlive(done <-chan struct{}) {
	t := time.NewTicker(wsPingInterval)
	defer t.Stop()
	for {
		select {
		case <-done:
			return
		case <-t.C:
			s.mu.Lock()
			err := s.conn.WriteMessage(websocket.PingMessage, nil)
			s.mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

func (s *wsSession) close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
}

// WebSocketHandler streams scan events to the client. Every client starts on
// the "all" channel and may then send
// {"action":"subscribe","channel":"matches","workflow":"tif"} and the like.
func WebSocketHandler(nc *nats.Conn, logger *slog.Logger) func(*websocket.Conn) {
	if logger == nil {
		logger = slog.Default()
	}
	return func(c *websocket.Conn) {
		defer c.Close()

		s := &wsSession{
			conn: c,
			nc:   nc,
			log:  logger.With("remote", c.RemoteAddr().String()),
			subs: map[string]*nats.Subscription{},
		}
		if nc == nil {
			s.reply("error", "event stream not configured", "")
			return
		}

		all, _ := wsSubject("all", "")
		if err := s.subscribe(all); err != nil {
			s.log.Error("ws subscribe", "subject", all, "error", err)
			return
		}
		defer s.close()

		done := make(chan struct{})
		defer close(done)
		go s.keepAlive(done)

		s.log.Info("ws client connected")
		for {
			_, raw, err := c.ReadMessage()
			if err != nil {
				break
			}
			s.handle(raw)
		}
		s.log.Info("ws client disconnected")
	}
}
