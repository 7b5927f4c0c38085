package main

import (
	"context"
	"testing"

	"github.com/erp/stockledger/internal/infrastructure/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func TestTagCommand(t *testing.T) {
	var got context.Context
	app := &cli.App{
		Flags: []cli.Flag{&cli.StringFlag{Name: "actor"}},
		Commands: []*cli.Command{{
			Name: "stock",
			Subcommands: []*cli.Command{{
				Name: "cancel",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "order"},
				},
				Action: func(c *cli.Context) error {
					got = tagCommand(c)
					return nil
				},
			}},
		}},
	}

	require.NoError(t, app.Run([]string{"stockledger", "--actor", "ops", "stock", "cancel", "--order", "SO-1"}))
	require.NotNil(t, got)
	assert.Equal(t, "cancel", logger.Operation(got))
	assert.Equal(t, "ops", logger.Actor(got))
	assert.Equal(t, "SO-1", logger.OrderRef(got))
	assert.Empty(t, logger.VariantID(got))
}
