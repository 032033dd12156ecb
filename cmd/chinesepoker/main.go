package main

import (
	"github.com/alecthomas/kong"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Version  kong.VersionFlag `short:"v" help:"Show version"`
	Serve    ServeCmd         `cmd:"" help:"Run the Chinese Poker server"`
	Client   ClientCmd        `cmd:"" help:"Connect to a room as an interactive client"`
	Classify ClassifyCmd      `cmd:"" help:"Classify up to five cards"`
	Rank     RankCmd          `cmd:"" help:"Rank hands best first"`
	Deal     DealCmd          `cmd:"" help:"Deal a two player round and print the hands"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("chinesepoker"),
		kong.Description("Chinese Poker engine, server and client"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
