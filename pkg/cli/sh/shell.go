// Package sh is the interactive shell of thermo-sh. Command providers
// register ishell commands with AddCmds from their init funcs.
package sh

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/thermo.go/pkg/boundary"
	"github.com/robotalks/thermo.go/pkg/boundary/env/connector"
	"github.com/robotalks/thermo.go/pkg/boundary/msgs"
)

// Options are bound to command line flags.
type Options struct {
	// EvalOnly runs the command line arguments and exits.
	EvalOnly bool
	JSON     bool
	// Timeout bounds discovery, connecting and commands other than
	// transmissions.
	Timeout time.Duration
}

// Shell wraps an ishell.Shell with at most one connected transmitter.
type Shell struct {
	Options
	AutoConnect bool

	Shell  *ishell.Shell
	Config *connector.Config
	Conn   *connector.Conn
}

// ErrNotConnected is reported by commands requiring a transmitter.
var ErrNotConnected = errors.New("not connected, use connect first")

const shellKey = "$shell"

var (
	options = Options{Timeout: 2 * time.Second}

	commands = []*ishell.Cmd{
		&DiscoverCmd,
		&ConnectCmd,
		&DisconnectCmd,
		&WhereCmd,
	}
)

func init() {
	flag.BoolVar(&options.EvalOnly, "e", options.EvalOnly, "Evaluate the arguments only, no interactive shell.")
	flag.BoolVar(&options.JSON, "json", options.JSON, "Print replies in JSON.")
	flag.DurationVar(&options.Timeout, "timeout", options.Timeout, "Timeout of discovery and commands.")
}

// AddCmds registers more commands, call it from init funcs.
func AddCmds(cmds ...*ishell.Cmd) {
	commands = append(commands, cmds...)
}

// New creates a shell with the options from flags.
func New(conf *connector.Config) *Shell {
	s := &Shell{Options: options, Shell: ishell.New(), Config: conf}
	s.Shell.Set(shellKey, s)
	for _, cmd := range commands {
		s.Shell.AddCmd(cmd)
	}
	s.updatePrompt()
	return s
}

// ShellFrom gets the Shell running a command.
func ShellFrom(c *ishell.Context) *Shell {
	return c.Get(shellKey).(*Shell)
}

// MustBeConnected guards a command func requiring a transmitter.
func MustBeConnected(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if ShellFrom(c).Conn == nil {
			c.Err(ErrNotConnected)
			return
		}
		fn(c)
	}
}

// FormatInfo renders a discovered transmitter in one line.
func FormatInfo(info boundary.ContextInfo) string {
	if desc := info.Meta.Description; desc != "" {
		return info.Ref.Name() + ": " + desc
	}
	return info.Ref.Name()
}

func (s *Shell) printJSON(c *ishell.Context, v interface{}) error {
	out, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.Println(string(out))
	return nil
}

// Print prints a reply.
func Print(c *ishell.Context, msg msgs.SerializableMessage) error {
	s := ShellFrom(c)
	switch {
	case s.JSON:
		return s.printJSON(c, msg.Serializable())
	case msg.TypeID() == msgs.CommandOKTypeID:
		c.Println("OK")
	default:
		c.Printf("%s %s\n", msgs.NameOf(msg), msg.Serializable().String())
	}
	return nil
}

// DoCommand sends msg and prints the reply, waiting up to the shell
// timeout.
func DoCommand(c *ishell.Context, msg msgs.SerializableMessage) error {
	return DoCommandWithin(c, msg, ShellFrom(c).Timeout)
}

// DoCommandWithin sends msg and prints the reply, waiting up to d.
// Failures are printed as boundary.TransportError.
func DoCommandWithin(c *ishell.Context, msg msgs.SerializableMessage, d time.Duration) error {
	err := ShellFrom(c).doCommand(c, msg, d)
	if err != nil {
		c.Err(err)
	}
	return err
}

func (s *Shell) doCommand(c *ishell.Context, msg msgs.SerializableMessage, d time.Duration) error {
	if s.Conn == nil {
		return ErrNotConnected
	}
	res := <-s.Conn.Session.DoCommandWithin(msg, d).ResultChan()
	if res.Err != nil {
		return boundary.AsTransportError(boundary.StageInvoke, res.Err)
	}
	reply, ok := res.Msg.(msgs.SerializableMessage)
	if !ok {
		return msgs.ErrNotSerializable
	}
	return Print(c, reply)
}

func (s *Shell) withTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.Timeout)
}

// Discover lists transmitters at the configured URL accepted by filter,
// nil filter accepts all.
func (s *Shell) Discover(filter func(boundary.ContextInfo) bool) ([]boundary.ContextInfo, error) {
	c, err := s.Config.NewConnector()
	if err != nil {
		return nil, boundary.AsTransportError(boundary.StageConnect, err)
	}
	ctx, cancel := s.withTimeout()
	defer cancel()
	infoList, err := c.Discover(ctx)
	if err != nil {
		return nil, err
	}
	found := infoList[:0]
	for _, info := range infoList {
		if filter == nil || filter(info) {
			found = append(found, info)
		}
	}
	return found, nil
}

// Select discovers transmitters and asks for a choice when there is
// more than one. It returns nil when nothing is discovered.
func (s *Shell) Select(filter func(boundary.ContextInfo) bool) (*boundary.ContextInfo, error) {
	infoList, err := s.Discover(filter)
	if err != nil || len(infoList) == 0 {
		return nil, err
	}
	if len(infoList) == 1 {
		return &infoList[0], nil
	}
	if s.EvalOnly {
		return nil, fmt.Errorf("%d transmitters discovered, specify TYPE ID", len(infoList))
	}
	choices := make([]string, len(infoList))
	for n, info := range infoList {
		choices[n] = FormatInfo(info)
	}
	return &infoList[s.Shell.MultiChoice(choices, "Which transmitter?")], nil
}

// Connect replaces the current connection with one to ref.
func (s *Shell) Connect(ref boundary.ContextRef) error {
	c, err := s.Config.NewConnector()
	if err != nil {
		return boundary.AsTransportError(boundary.StageConnect, err)
	}
	ctx, cancel := s.withTimeout()
	defer cancel()
	session, err := c.Connect(ctx, ref)
	if err != nil {
		return boundary.AsTransportError(boundary.StageSession, err)
	}
	s.Disconnect()
	s.Conn = connector.Run(context.Background(), ref, session)
	s.updatePrompt()
	return nil
}

// Disconnect closes the current connection if any.
func (s *Shell) Disconnect() {
	if s.Conn == nil {
		return
	}
	s.Conn.Close()
	s.Conn = nil
	s.updatePrompt()
}

func (s *Shell) updatePrompt() {
	name := "none"
	if s.Conn != nil {
		name = s.Conn.Ref.Name()
	}
	s.Shell.SetPrompt("[" + name + "] > ")
}

func (s *Shell) autoConnect() error {
	ref := s.Config.Ref
	if !ref.IsValid() {
		info, err := s.Select(func(info boundary.ContextInfo) bool {
			return ref.Type == "" || info.Ref.Type == ref.Type
		})
		if err != nil || info == nil {
			return err
		}
		ref = info.Ref
	}
	if !s.EvalOnly {
		s.Shell.Printf("Connecting %s ...\n", ref.Name())
	}
	return s.Connect(ref)
}

// Run evaluates args if any, or starts the interactive shell.
func (s *Shell) Run(args ...string) {
	if s.AutoConnect {
		if err := s.autoConnect(); err != nil {
			log.Fatalln(err)
		}
	}
	defer s.Disconnect()

	switch {
	case len(args) > 0:
		if err := s.Shell.Process(args...); err != nil {
			log.Fatalln(err)
		}
	case s.EvalOnly:
		log.Fatalln("command expected")
	default:
		s.Shell.Run()
	}
}

var (
	// DiscoverCmd lists transmitters.
	DiscoverCmd = ishell.Cmd{
		Name:    "discover",
		Aliases: []string{"list", "l"},
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			infoList, err := s.Discover(nil)
			if err != nil {
				c.Err(err)
				return
			}
			if s.JSON {
				if infoList == nil {
					infoList = []boundary.ContextInfo{}
				}
				if err = s.printJSON(c, infoList); err != nil {
					c.Err(err)
				}
				return
			}
			if len(infoList) == 0 {
				c.Println("No transmitters found")
			}
			for _, info := range infoList {
				c.Println(FormatInfo(info))
			}
		},
	}

	// ConnectCmd connects a transmitter, discovering it unless both TYPE
	// and ID are given.
	ConnectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "[TYPE [ID]]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			var ref boundary.ContextRef
			switch len(c.Args) {
			case 0:
			case 1:
				ref.Type = c.Args[0]
			default:
				ref.Type, ref.ID = c.Args[0], c.Args[1]
			}
			if !ref.IsValid() {
				info, err := s.Select(func(info boundary.ContextInfo) bool {
					return ref.Type == "" || info.Ref.Type == ref.Type
				})
				if err != nil {
					c.Err(err)
					return
				}
				if info == nil {
					c.Err(fmt.Errorf("no transmitter discovered at %s", s.Config.URL))
					return
				}
				ref = info.Ref
			}
			if err := s.Connect(ref); err != nil {
				c.Err(err)
			}
		},
	}

	// DisconnectCmd disconnects the current transmitter.
	DisconnectCmd = ishell.Cmd{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Func: func(c *ishell.Context) {
			ShellFrom(c).Disconnect()
		},
	}

	// WhereCmd prints the boundary URL and the connected transmitter.
	WhereCmd = ishell.Cmd{
		Name: "where",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			parts := []string{s.Config.URL}
			if s.Conn != nil {
				parts = append(parts, s.Conn.Ref.Name())
			}
			c.Println(strings.Join(parts, " "))
		},
	}
)

// Main parses flags and runs the shell with the default connector.
func Main() {
	connector.SetupFlags()
	flag.Parse()
	New(connector.Default()).WithAutoConnect(true).Run(flag.Args()...)
}

// WithAutoConnect sets AutoConnect.
func (s *Shell) WithAutoConnect(en bool) *Shell {
	s.AutoConnect = en
	return s
}
