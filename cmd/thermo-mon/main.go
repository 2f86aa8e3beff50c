package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/robotalks/thermo.go/pkg/boundary/comm/mqtt"
	"github.com/robotalks/thermo.go/pkg/boundary/msgs"
	fx "github.com/robotalks/thermo.go/pkg/framework"
)

var (
	mqttURL = "mqtt://localhost:1883/thermo/"
	filter  = "#"
)

func init() {
	if val := os.Getenv("THERMO_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
	flag.StringVar(&filter, "topic", filter, "Topic filter under the URL prefix, e.g. thermo-ta/+/msg.")
}

func describe(topic string, payload []byte) string {
	if strings.HasSuffix(topic, mqtt.TopicMeta) {
		if len(payload) == 0 {
			return "gone"
		}
		return string(payload)
	}
	typed, err := msgs.DecodeTyped(payload)
	if err != nil {
		return "bad packet: " + err.Error()
	}
	msg, err := typed.Decode()
	if err != nil {
		return "undecodable: " + err.Error()
	}
	desc := msgs.NameOf(msg) + " " + msg.(msgs.SerializableMessage).Serializable().String()
	if typed.IsEvent() {
		return "event " + desc
	}
	return fmt.Sprintf("#%d %s", typed.Sequence, desc)
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	q, err := mqtt.NewQueueFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}
	q.Sub(filter, func(topic string, payload []byte) {
		log.Printf("%s: %s", topic, describe(topic, payload))
	})
	if err = q.ConnectWait(); err != nil {
		log.Fatalln(err)
	}
	defer q.Close()

	err = fx.NewRunner().HandleSignals().Go(fx.NamedRun("monitor", fx.RunFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	}))).Wait()
	if err != nil {
		log.Println(err)
	}
}
