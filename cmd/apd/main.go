package main

//go-build: CGO_ENABLED=0

import (
	"flag"
	"os"

	"github.com/golang/glog"

	"github.com/robotalks/chainlink/pkg/chain/ap"
	"github.com/robotalks/chainlink/pkg/env"
	fx "github.com/robotalks/chainlink/pkg/framework"
)

func init() {
	flag.String("config", "", "TOML config file, command line flags take precedence.")
	ap.SetupFlags()
}

func main() {
	if path := env.ConfigPath(os.Args[1:]); path != "" {
		if err := ap.Default().LoadFile(path); err != nil {
			glog.Exit(err)
		}
	}
	flag.Parse()
	fx.RunOrFail(ap.NewConfig().Runnable())
}
