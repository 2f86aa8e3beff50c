// Package connector sets up sessions to the transmitter context.
package connector

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/url"
	"os"
	"sort"
	"sync"

	"github.com/robotalks/thermo.go/pkg/boundary"
	"github.com/robotalks/thermo.go/pkg/boundary/comm"
	"github.com/robotalks/thermo.go/pkg/boundary/comm/mqtt"
	"github.com/robotalks/thermo.go/pkg/boundary/comm/stream"
	"github.com/robotalks/thermo.go/pkg/boundary/comm/websocket"
	"github.com/robotalks/thermo.go/pkg/boundary/env"
	fx "github.com/robotalks/thermo.go/pkg/framework"
)

// Config provides common options to set up Connectors.
type Config struct {
	Ref boundary.ContextRef

	// URL specifies where the context is registered or served.
	// e.g. mqtt://host:port/topic-prefix, tcp://host:port,
	// ws://host:port/path or local://
	URL string
}

// SchemeFunc creates a Connector for a parsed URL.
type SchemeFunc func(u *url.URL) (boundary.Connector, error)

var (
	defaultConfig = Config{
		Ref: boundary.ContextRef{Type: env.ContextType},
		URL: "local://",
	}

	schemes     = make(map[string]SchemeFunc)
	schemesLock sync.RWMutex
)

func init() {
	if val := os.Getenv("THERMO_TA_TYPE"); val != "" {
		defaultConfig.Ref.Type = val
	}
	if val := os.Getenv("THERMO_TA_ID"); val != "" {
		defaultConfig.Ref.ID = val
	}
	if val := os.Getenv("THERMO_TA_URL"); val != "" {
		defaultConfig.URL = val
	}

	RegisterScheme("mqtt", func(u *url.URL) (boundary.Connector, error) {
		return mqtt.NewConnector(u.String())
	})
	RegisterScheme("tcp", func(u *url.URL) (boundary.Connector, error) {
		return &comm.DialConnector{
			Info: directInfo(u),
			Dial: func(ctx context.Context) (comm.PacketReadWriter, error) {
				return stream.Dial(ctx, u.Host)
			},
		}, nil
	})
	RegisterScheme("ws", func(u *url.URL) (boundary.Connector, error) {
		return &comm.DialConnector{
			Info: directInfo(u),
			Dial: func(context.Context) (comm.PacketReadWriter, error) {
				return websocket.Dial(u.String())
			},
		}, nil
	})
}

func directInfo(u *url.URL) boundary.ContextInfo {
	return boundary.ContextInfo{
		Ref:  boundary.ContextRef{Type: env.ContextType, ID: u.Host},
		Meta: boundary.ContextMeta{Description: u.String()},
	}
}

// RegisterScheme makes a URL scheme available to NewConnector.
func RegisterScheme(scheme string, fn SchemeFunc) {
	schemesLock.Lock()
	schemes[scheme] = fn
	schemesLock.Unlock()
}

// Schemes lists registered URL schemes.
func Schemes() []string {
	schemesLock.RLock()
	defer schemesLock.RUnlock()
	names := make([]string, 0, len(schemes))
	for name := range schemes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SetupFlags sets up command line flags.
func SetupFlags() {
	flag.StringVar(&defaultConfig.Ref.Type, "ta-type", defaultConfig.Ref.Type, "Transmitter context type to connect.")
	flag.StringVar(&defaultConfig.Ref.ID, "ta-id", defaultConfig.Ref.ID, "Transmitter context ID to connect.")
	flag.StringVar(&defaultConfig.URL, "ta", defaultConfig.URL, "Transmitter URL (mqtt, tcp, ws or local).")
}

// Default gets the default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a Config with default configurations.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// NewConnector creates a Connector using current config.
func (c *Config) NewConnector() (boundary.Connector, error) {
	parsedURL, err := url.Parse(c.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid transmitter URL: %v", err)
	}
	schemesLock.RLock()
	fn := schemes[parsedURL.Scheme]
	schemesLock.RUnlock()
	if fn == nil {
		return nil, fmt.Errorf("unknown transmitter URL scheme: %q", parsedURL.Scheme)
	}
	return fn(parsedURL)
}

// MustNewConnector creates a Connector and fails on error.
func (c *Config) MustNewConnector() boundary.Connector {
	conn, err := c.NewConnector()
	if err != nil {
		log.Fatalln(err)
	}
	return conn
}

// Resolve completes Ref by discovery when the ID is not specified.
// Exactly one matching context must be discovered.
func (c *Config) Resolve(ctx context.Context, connector boundary.Connector) (boundary.ContextRef, error) {
	if c.Ref.IsValid() {
		return c.Ref, nil
	}
	infoList, err := connector.Discover(ctx)
	if err != nil {
		return c.Ref, err
	}
	var found []boundary.ContextRef
	for _, info := range infoList {
		if c.Ref.Type == "" || info.Ref.Type == c.Ref.Type {
			found = append(found, info.Ref)
		}
	}
	switch len(found) {
	case 0:
		return c.Ref, fmt.Errorf("no transmitter discovered at %s", c.URL)
	case 1:
		return found[0], nil
	}
	return c.Ref, fmt.Errorf("%d transmitters discovered at %s, specify an ID", len(found), c.URL)
}

// Connect directly connects to the transmitter context.
func (c *Config) Connect(ctx context.Context) (boundary.Session, boundary.ContextRef, error) {
	connector, err := c.NewConnector()
	if err != nil {
		return nil, c.Ref, err
	}
	ref, err := c.Resolve(ctx, connector)
	if err != nil {
		return nil, ref, err
	}
	session, err := connector.Connect(ctx, ref)
	return session, ref, err
}

// Conn is a connected session driven by its own running loop.
type Conn struct {
	Ref     boundary.ContextRef
	Session boundary.Session
	Loop    *fx.Loop

	cancel func()
	done   chan error
}

// Open connects and runs the session in a loop until Close.
func (c *Config) Open(ctx context.Context) (*Conn, error) {
	session, ref, err := c.Connect(ctx)
	if err != nil {
		return nil, err
	}
	return Run(ctx, ref, session), nil
}

// MustOpen opens a Conn and fails on error.
func (c *Config) MustOpen(ctx context.Context) *Conn {
	conn, err := c.Open(ctx)
	if err != nil {
		log.Fatalln(err)
	}
	return conn
}

// Run runs session in a new loop.
func Run(ctx context.Context, ref boundary.ContextRef, session boundary.Session) *Conn {
	conn := &Conn{
		Ref:     ref,
		Session: session,
		Loop:    fx.NewLoop(),
		done:    make(chan error, 1),
	}
	if adder, ok := session.(fx.LoopAdder); ok {
		conn.Loop.Add(adder)
	}
	ctx, conn.cancel = context.WithCancel(ctx)
	go func() { conn.done <- conn.Loop.Run(ctx) }()
	return conn
}

// Close stops the loop and closes the session.
func (c *Conn) Close() error {
	c.cancel()
	err := c.Session.Close()
	<-c.done
	return err
}
