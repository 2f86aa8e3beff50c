package mqtt

import (
	"context"
	"encoding/json"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"

	"github.com/robotalks/thermo.go/pkg/boundary"
	"github.com/robotalks/thermo.go/pkg/boundary/comm"
	fx "github.com/robotalks/thermo.go/pkg/framework"
)

// Registrar announces a transmitter on the retained meta topic
// <type>/<id>/meta and serves its sessions over the queue.
type Registrar struct {
	Queue *Queue
	Info  boundary.ContextInfo

	meta      []byte
	registrar *comm.Registrar
}

// NewRegistrar creates a Registrar. The broker clears the meta topic
// through the will message when the transmitter vanishes.
func NewRegistrar(brokerURL string, info boundary.ContextInfo) (*Registrar, error) {
	meta, err := json.Marshal(&info.Meta)
	if err != nil {
		return nil, err
	}
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	opts.SetBinaryWill(topicPrefix+metaTopic(info.Ref), nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("thermo:" + info.Ref.Name())
	}
	q := NewQueue(opts, topicPrefix)
	r := &Registrar{
		Queue:     q,
		Info:      info,
		meta:      meta,
		registrar: comm.NewRegistrar(NewPacketReadWriter(q).ForContext(info.Ref)),
	}
	q.OnConnect = func(*Queue) { r.announce(r.meta) }
	return r, nil
}

func metaTopic(ref boundary.ContextRef) string {
	return ref.Name() + TopicMeta
}

func (r *Registrar) announce(meta []byte) paho.Token {
	return r.Queue.PubWith(metaTopic(r.Info.Ref), meta, 1, true)
}

// SendEvent implements boundary.Registrar.
func (r *Registrar) SendEvent(ctx context.Context, msg fx.Message) error {
	return r.registrar.SendEvent(ctx, msg)
}

// AddToLoop implements LoopAdder.
func (r *Registrar) AddToLoop(loop *fx.Loop) {
	loop.Add(r.registrar)
	loop.AddRunnable(fx.NamedRun("mqtt-registrar", r))
}

// Run keeps the broker connection until ctx is done, then withdraws the
// announcement.
func (r *Registrar) Run(ctx context.Context) error {
	r.Queue.Connect()
	<-ctx.Done()
	token := r.announce(nil)
	token.Wait()
	if err := token.Error(); err != nil {
		glog.Warningf("withdraw %s: %v", r.Info.Ref.Name(), err)
	}
	return r.Queue.Close()
}
