package main

import (
	"github.com/robotalks/thermo.go/pkg/cli/sh"

	_ "github.com/robotalks/thermo.go/pkg/cli/cmds/transmit"
	_ "github.com/robotalks/thermo.go/pkg/enclave"
)

//go-build: CGO_ENABLED=0

func main() {
	sh.Main()
}
