package main

import (
	"context"

	"github.com/lox/chinesepoker/cmd/chinesepoker/shared"
	"github.com/lox/chinesepoker/internal/client/commands"
)

// ClientCmd connects to a room and runs the interactive shell
type ClientCmd struct {
	commands.GlobalFlags `embed:""`
}

func (c *ClientCmd) Run() error {
	wsClient, cfg, logger, cleanup, err := commands.SetupClient(context.Background(), &c.GlobalFlags)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := shared.SetupSignalHandlerWithLogger(logger)
	return commands.NewShell(wsClient, cfg, logger).Run(ctx)
}
