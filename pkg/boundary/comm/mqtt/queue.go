// Package mqtt carries boundary packets over an MQTT broker and uses
// retained meta topics for discovery.
package mqtt

import (
	"sync"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"
)

// Handler receives a message, topic is relative to the queue prefix.
type Handler func(topic string, payload []byte)

// ConnectHandler is notified when the queue connects or loses the broker.
type ConnectHandler func(*Queue)

// Queue is an MQTT client scoped to a topic prefix. Handlers subscribed
// to the same filter share one broker subscription.
type Queue struct {
	Client       paho.Client
	TopicPrefix  string
	OnConnect    ConnectHandler
	OnDisconnect ConnectHandler

	lock    sync.RWMutex
	filters map[string][]*Subscription
}

// Subscription is one handler attached to a filter.
type Subscription struct {
	// Token is set when the subscription caused a broker SUBSCRIBE.
	Token paho.Token

	queue   *Queue
	filter  string
	handler Handler
}

// NewQueue creates a Queue, options get the queue's connection handlers.
func NewQueue(options *paho.ClientOptions, topicPrefix string) *Queue {
	q := &Queue{
		TopicPrefix: topicPrefix,
		filters:     make(map[string][]*Subscription),
	}
	options.SetOnConnectHandler(q.OnConnectHandler)
	options.SetConnectionLostHandler(q.ConnectionLostHandler)
	q.Client = paho.NewClient(options)
	return q
}

// NewQueueFromURL creates a Queue from a broker URL.
func NewQueueFromURL(brokerURL string) (*Queue, error) {
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	return NewQueue(opts, topicPrefix), nil
}

// Connect starts connecting without waiting.
func (q *Queue) Connect() paho.Token {
	return q.Client.Connect()
}

// ConnectWait connects and waits for the result.
func (q *Queue) ConnectWait() error {
	token := q.Client.Connect()
	token.Wait()
	return token.Error()
}

// Close disconnects immediately.
func (q *Queue) Close() error {
	q.Client.Disconnect(0)
	return nil
}

// Sub attaches handler to filter.
func (q *Queue) Sub(filter string, handler Handler) *Subscription {
	sub := &Subscription{queue: q, filter: filter, handler: handler}
	q.lock.Lock()
	subs := q.filters[filter]
	q.filters[filter] = append(subs, sub)
	q.lock.Unlock()

	if len(subs) == 0 {
		glog.V(2).Infof("SUB %q", q.TopicPrefix+filter)
		sub.Token = q.Client.Subscribe(q.TopicPrefix+filter, 0, q.dispatch)
	}
	return sub
}

// Pub publishes with QoS 0 and no retain.
func (q *Queue) Pub(topic string, payload []byte) paho.Token {
	return q.PubWith(topic, payload, 0, false)
}

// PubWith publishes with QoS and retain settings.
func (q *Queue) PubWith(topic string, payload []byte, qos byte, retain bool) paho.Token {
	return q.Client.Publish(q.TopicPrefix+topic, qos, retain, payload)
}

// Resubscribe subscribes all current filters again, the broker forgets
// them with a clean session.
func (q *Queue) Resubscribe() paho.Token {
	q.lock.RLock()
	filters := make(map[string]byte, len(q.filters))
	for filter := range q.filters {
		filters[q.TopicPrefix+filter] = 0
	}
	q.lock.RUnlock()
	if len(filters) == 0 {
		return &paho.DummyToken{}
	}
	glog.V(2).Infof("SUB %d filters", len(filters))
	return q.Client.SubscribeMultiple(filters, q.dispatch)
}

// OnConnectHandler is installed as the paho OnConnectHandler.
func (q *Queue) OnConnectHandler(paho.Client) {
	glog.Infof("broker connected, topic prefix %q", q.TopicPrefix)
	q.Resubscribe()
	if h := q.OnConnect; h != nil {
		h(q)
	}
}

// ConnectionLostHandler is installed as the paho ConnectionLostHandler.
func (q *Queue) ConnectionLostHandler(_ paho.Client, err error) {
	glog.Warningf("broker connection lost: %v", err)
	if h := q.OnDisconnect; h != nil {
		h(q)
	}
}

func (q *Queue) handlersOf(topic string) []Handler {
	q.lock.RLock()
	defer q.lock.RUnlock()
	var handlers []Handler
	for filter, subs := range q.filters {
		if filter != topic && !(isWildcard(filter) && MatchTopic(topic, filter)) {
			continue
		}
		for _, sub := range subs {
			handlers = append(handlers, sub.handler)
		}
	}
	return handlers
}

func (q *Queue) dispatch(_ paho.Client, msg paho.Message) {
	topic := msg.Topic()
	if len(topic) < len(q.TopicPrefix) || topic[:len(q.TopicPrefix)] != q.TopicPrefix {
		return
	}
	topic = topic[len(q.TopicPrefix):]
	glog.V(2).Infof("RCV %q", topic)
	payload := msg.Payload()
	for _, h := range q.handlersOf(topic) {
		h(topic, payload)
	}
}

// Close detaches the handler, the broker subscription is dropped with
// the last handler of the filter.
func (s *Subscription) Close() error {
	q := s.queue
	q.lock.Lock()
	subs, found := q.filters[s.filter], false
	for i, sub := range subs {
		if sub == s {
			subs, found = append(subs[:i:i], subs[i+1:]...), true
			break
		}
	}
	if !found {
		q.lock.Unlock()
		return nil
	}
	last := len(subs) == 0
	if last {
		delete(q.filters, s.filter)
	} else {
		q.filters[s.filter] = subs
	}
	q.lock.Unlock()

	if !last {
		return nil
	}
	glog.V(2).Infof("UNSUB %q", s.filter)
	token := q.Client.Unsubscribe(q.TopicPrefix + s.filter)
	token.Wait()
	return token.Error()
}
