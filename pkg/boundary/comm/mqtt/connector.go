package mqtt

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"

	"github.com/robotalks/thermo.go/pkg/boundary"
	"github.com/robotalks/thermo.go/pkg/boundary/comm"
)

// Connector implements boundary.Connector using MQTT.
type Connector struct {
	DiscoverTimeout time.Duration

	options     *paho.ClientOptions
	topicPrefix string
}

// DefaultDiscoverTimeout defines the default timeout value of discovery.
const DefaultDiscoverTimeout = 500 * time.Millisecond

// NewConnector creates a Connector.
func NewConnector(brokerURL string) (*Connector, error) {
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	return &Connector{
		DiscoverTimeout: DefaultDiscoverTimeout,
		options:         opts,
		topicPrefix:     topicPrefix,
	}, nil
}

// ParseMetaTopic extracts the context ref from a TYPE/ID/meta topic.
func ParseMetaTopic(topic string) (ref boundary.ContextRef, ok bool) {
	items := strings.Split(topic, "/")
	if len(items) != 3 || "/"+items[2] != TopicMeta {
		return
	}
	ref.Type, ref.ID = items[0], items[1]
	return ref, ref.IsValid()
}

// Discover implements Connector. Contexts publish a retained meta topic
// while registered.
func (c *Connector) Discover(ctx context.Context) (res []boundary.ContextInfo, err error) {
	q := NewQueue(c.options, c.topicPrefix)
	if err = q.ConnectWait(); err != nil {
		return nil, err
	}
	defer q.Close()
	resCh := make(chan boundary.ContextInfo, 1)
	q.Sub("+/+"+TopicMeta, Handler(func(topic string, payload []byte) {
		ref, ok := ParseMetaTopic(topic)
		if !ok || len(payload) == 0 {
			return
		}
		info := boundary.ContextInfo{Ref: ref}
		if err := json.Unmarshal(payload, &info.Meta); err != nil {
			glog.Warningf("%s: bad meta: %v", topic, err)
		}
		select {
		case resCh <- info:
		case <-time.After(time.Second):
		}
	}))

	dur := c.DiscoverTimeout
	if dur == 0 {
		dur = DefaultDiscoverTimeout
	}
	timeout := time.After(dur)
	for {
		select {
		case info := <-resCh:
			res = append(res, info)
		case <-timeout:
			return
		case <-ctx.Done():
			err = ctx.Err()
			return
		}
	}
}

// Connect implements Connector.
func (c *Connector) Connect(ctx context.Context, ref boundary.ContextRef) (boundary.Session, error) {
	s := &Session{
		Queue: NewQueue(c.options, c.topicPrefix),
	}
	s.Init(NewPacketReadWriter(s.Queue).ForSession(ref))
	if err := s.Queue.ConnectWait(); err != nil {
		return nil, err
	}
	return s, nil
}

// Session implements boundary.Session using MQTT.
type Session struct {
	comm.Session
	Queue *Queue
}

// Close implements io.Closer.
func (s *Session) Close() error {
	s.Session.Close()
	return s.Queue.Close()
}
