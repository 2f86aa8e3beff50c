package main

//go-build: CGO_ENABLED=0

import (
	"flag"
	"log"

	"github.com/robotalks/thermo.go/pkg/boundary/env/service"
	"github.com/robotalks/thermo.go/pkg/enclave"
	"github.com/robotalks/thermo.go/pkg/framework"
)

func init() {
	service.SetupFlags()
	enclave.SetupFlags()
}

func main() {
	flag.Parse()

	env := service.Default().MustNewEnv()
	tx := enclave.Default().NewTransmitter()
	tx.Registrar = env.Registrar
	log.Printf("%s serving at %v", env.Config.Info.Ref.Name(), env.Endpoints)
	framework.NewLoop().Add(env, tx).RunOrFail()
}
