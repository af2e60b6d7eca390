package main

//go-build: CGO_ENABLED=0

import (
	"flag"
	"os"

	"github.com/golang/glog"

	"github.com/robotalks/chainlink/pkg/chain/node"
	"github.com/robotalks/chainlink/pkg/env"
	fx "github.com/robotalks/chainlink/pkg/framework"
)

func init() {
	flag.String("config", "", "TOML config file, command line flags take precedence.")
	node.SetupFlags()
}

func main() {
	if path := env.ConfigPath(os.Args[1:]); path != "" {
		if err := node.Default().LoadFile(path); err != nil {
			glog.Exit(err)
		}
	}
	flag.Parse()
	fx.RunOrFail(node.NewConfig().Runnable())
}
