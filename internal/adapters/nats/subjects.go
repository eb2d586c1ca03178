package natsadapter

import (
	"time"

	"github.com/nats-io/nats.go"
)

const (
	// StreamName is the JetStream stream holding scan events.
	StreamName = "PROBE_SCANS"

	subjectPrefix = "probe.scan."
	// SubjectAll matches every scan event.
	SubjectAll = subjectPrefix + ">"

	subjectCompletedAny = subjectPrefix + "completed.*"
	subjectMatchAny     = subjectPrefix + "match.*"
)

// SubjectCompleted is the subject of ScanCompleted events for a workflow.
func SubjectCompleted(workflow string) string {
	return subjectPrefix + "completed." + token(workflow)
}

// SubjectMatch is the subject of MatchFound events for a workflow.
func SubjectMatch(workflow string) string {
	return subjectPrefix + "match." + token(workflow)
}

// token makes s safe as a single subject token.
func token(s string) string {
	if s == "" {
		return "_"
	}
	b := []byte(s)
	for i, c := range b {
		switch c {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			b[i] = '_'
		}
	}
	return string(b)
}

func streamConfig() *nats.StreamConfig {
	return &nats.StreamConfig{
		Name:      StreamName,
		Subjects:  []string{SubjectAll},
		Retention: nats.LimitsPolicy,
		MaxAge:    24 * time.Hour,
		Storage:   nats.FileStorage,
	}
}

func connect(url, name string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name(name),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return connect(url, "tifprobe-relay")
}
