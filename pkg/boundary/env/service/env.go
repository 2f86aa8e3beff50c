// Package service sets up the registrars of the transmitter context.
package service

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/robotalks/thermo.go/pkg/boundary"
	"github.com/robotalks/thermo.go/pkg/boundary/comm"
	"github.com/robotalks/thermo.go/pkg/boundary/comm/mqtt"
	"github.com/robotalks/thermo.go/pkg/boundary/comm/stream"
	"github.com/robotalks/thermo.go/pkg/boundary/comm/websocket"
	"github.com/robotalks/thermo.go/pkg/boundary/env"
	fx "github.com/robotalks/thermo.go/pkg/framework"
)

// Config provides common options to set up an env for the context.
type Config struct {
	Info boundary.ContextInfo

	// MQTTBrokerURL specifies the MQTT broker to register with.
	// e.g. mqtt://host:port/topic-prefix
	MQTTBrokerURL string
	// ListenAddr serves length-prefixed TCP sessions, e.g. :7650.
	ListenAddr string
	// WebSocketAddr serves WebSocket sessions on WebSocketPath.
	WebSocketAddr string
	WebSocketPath string
}

var defaultConfig = Config{
	Info: boundary.ContextInfo{
		Ref:  boundary.ContextRef{Type: env.ContextType},
		Meta: boundary.ContextMeta{Description: "Thermal transmitter"},
	},
	WebSocketPath: websocket.DefaultPath,
}

func init() {
	if val := os.Getenv("THERMO_MQTT_URL"); val != "" {
		defaultConfig.MQTTBrokerURL = val
	}
	if val := os.Getenv("THERMO_LISTEN"); val != "" {
		defaultConfig.ListenAddr = val
	}
	if val := os.Getenv("THERMO_WS_LISTEN"); val != "" {
		defaultConfig.WebSocketAddr = val
	}
	defaultConfig.Info.Ref.ID = env.MachineID()
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Info.Ref.Type, "type", defaultConfig.Info.Ref.Type, "Context type")
	flag.StringVar(&defaultConfig.Info.Ref.ID, "id", defaultConfig.Info.Ref.ID, "Context ID")
	flag.StringVar(&defaultConfig.MQTTBrokerURL, "mqtt", defaultConfig.MQTTBrokerURL, "MQTT broker URL")
	flag.StringVar(&defaultConfig.ListenAddr, "listen", defaultConfig.ListenAddr, "TCP listen address")
	flag.StringVar(&defaultConfig.WebSocketAddr, "ws-listen", defaultConfig.WebSocketAddr, "WebSocket listen address")
	flag.StringVar(&defaultConfig.WebSocketPath, "ws-path", defaultConfig.WebSocketPath, "WebSocket path")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Env is the env of the transmitter context.
type Env struct {
	Config    *Config
	Endpoints []string
	Registrar *comm.RegistrarMux
}

// NewEnv creates Env from config.
func (c *Config) NewEnv() (*Env, error) {
	if !c.Info.Ref.IsValid() {
		return nil, fmt.Errorf("context type and id must be specified")
	}
	e := &Env{
		Config:    c,
		Registrar: &comm.RegistrarMux{},
	}
	if c.MQTTBrokerURL != "" {
		reg, err := mqtt.NewRegistrar(c.MQTTBrokerURL, c.Info)
		if err != nil {
			return nil, fmt.Errorf("create MQTT registrar error: %v", err)
		}
		e.Registrar.Add(reg)
		e.Endpoints = append(e.Endpoints, c.MQTTBrokerURL)
	}
	if c.ListenAddr != "" {
		ln, err := stream.Listen(c.ListenAddr)
		if err != nil {
			e.close()
			return nil, fmt.Errorf("listen %s error: %v", c.ListenAddr, err)
		}
		e.Registrar.Add(comm.NewServer(ln))
		e.Endpoints = append(e.Endpoints, ln.Addr())
	}
	if c.WebSocketAddr != "" {
		ln, err := websocket.Listen(c.WebSocketAddr, c.WebSocketPath)
		if err != nil {
			e.close()
			return nil, fmt.Errorf("listen %s error: %v", c.WebSocketAddr, err)
		}
		e.Registrar.Add(comm.NewServer(ln))
		e.Endpoints = append(e.Endpoints, ln.Addr())
	}
	if len(e.Registrar.Registrars) == 0 {
		return nil, fmt.Errorf("at least one of MQTT, TCP or WebSocket endpoint is required")
	}
	return e, nil
}

func (e *Env) close() {
	for _, reg := range e.Registrar.Registrars {
		if srv, ok := reg.(*comm.Server); ok {
			srv.Listener.Close()
		}
	}
}

// MustNewEnv creates Env and fails on error.
func (c *Config) MustNewEnv() *Env {
	e, err := c.NewEnv()
	if err != nil {
		log.Fatalln(err)
	}
	return e
}

// AddToLoop adds registrars and the fallback for unhandled commands.
func (e *Env) AddToLoop(loop *fx.Loop) {
	loop.Add(e.Registrar)
	loop.Add(&comm.UnsupportedCommands{})
}
