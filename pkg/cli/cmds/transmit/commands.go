package transmit

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/thermo.go/pkg/bits"
	"github.com/robotalks/thermo.go/pkg/boundary/msgs"
	"github.com/robotalks/thermo.go/pkg/cli/sh"
	"github.com/robotalks/thermo.go/pkg/hamming"
	"github.com/robotalks/thermo.go/pkg/sender"
)

func parseBlockSize(c *ishell.Context, arg string) (*hamming.Codec, bool) {
	size, err := strconv.Atoi(arg)
	if err != nil {
		c.Err(fmt.Errorf("Invalid BLOCK_SIZE: %v", err))
		return nil, false
	}
	codec, err := hamming.NewCodec(size)
	if err != nil {
		c.Err(err)
		return nil, false
	}
	return codec, true
}

var (
	// TransmitCmd sends a message through the connected transmitter.
	TransmitCmd = ishell.Cmd{
		Name:    "tx",
		Aliases: []string{"send"},
		Help:    "BIT_TIME(ms) [FEC(0|1)] [MESSAGE]",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) < 1 {
				c.Err(fmt.Errorf("BIT_TIME required"))
				return
			}
			conf := sender.NewConfig()
			ms, err := strconv.Atoi(c.Args[0])
			if err != nil || ms <= 0 {
				c.Err(fmt.Errorf("Invalid BIT_TIME: %q", c.Args[0]))
				return
			}
			conf.BitTime = time.Duration(ms) * time.Millisecond
			if len(c.Args) > 1 {
				switch c.Args[1] {
				case "0":
				case "1":
					conf.FEC = true
				default:
					c.Err(fmt.Errorf("Invalid FEC: %q", c.Args[1]))
					return
				}
			}
			if len(c.Args) > 2 {
				conf.Message, conf.Bits = strings.Join(c.Args[2:], " "), ""
			}
			input, err := conf.Input()
			if err != nil {
				c.Err(err)
				return
			}
			p, err := conf.Prepare(input)
			if err != nil {
				c.Err(err)
				return
			}
			sh.DoCommandWithin(c, conf.Command(p), conf.Expiration(len(p.Bits)))
		}),
	}

	// StatusCmd queries the transmitter status.
	StatusCmd = ishell.Cmd{
		Name:    "status",
		Aliases: []string{"st"},
		Help:    "",
		Func: sh.MustBeConnected(func(c *ishell.Context) {
			sh.DoCommand(c, &msgs.StatusQuery{})
		}),
	}

	// EncodeCmd prints the bits of a message, SECDED encoded when
	// BLOCK_SIZE is not 0.
	EncodeCmd = ishell.Cmd{
		Name:    "encode",
		Aliases: []string{"enc"},
		Help:    "BLOCK_SIZE MESSAGE",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 2 {
				c.Err(fmt.Errorf("BLOCK_SIZE and MESSAGE required"))
				return
			}
			seq, err := bits.Expand([]byte(strings.Join(c.Args[1:], " ")))
			if err != nil {
				c.Err(err)
				return
			}
			if c.Args[0] != "0" {
				codec, ok := parseBlockSize(c, c.Args[0])
				if !ok {
					return
				}
				seq = codec.Encode(seq)
			}
			c.Println(seq.String())
		},
	}

	// DecodeCmd decodes a SECDED encoded bit string.
	DecodeCmd = ishell.Cmd{
		Name:    "decode",
		Aliases: []string{"dec"},
		Help:    "BLOCK_SIZE BITS",
		Func: func(c *ishell.Context) {
			if len(c.Args) < 2 {
				c.Err(fmt.Errorf("BLOCK_SIZE and BITS required"))
				return
			}
			codec, ok := parseBlockSize(c, c.Args[0])
			if !ok {
				return
			}
			seq, err := bits.Parse(c.Args[1])
			if err != nil {
				c.Err(err)
				return
			}
			data, statuses, err := codec.Decode(seq)
			if err != nil {
				c.Err(err)
				return
			}
			c.Println(data.String())
			for n, st := range statuses {
				if st.Kind != hamming.StatusOK {
					c.Printf("block %d: %v\n", n, st)
				}
			}
		},
	}
)

func init() {
	sh.AddCmds(
		&TransmitCmd,
		&StatusCmd,
		&EncodeCmd,
		&DecodeCmd,
	)
}
