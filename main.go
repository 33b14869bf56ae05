package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/fzft/go-mini-redis/cmd"
)

func main() {
	app := &cli.App{
		Name:    "miniredis",
		Usage:   "a small RESP key-value server",
		Version: Version(),
		Flags:   serveFlags,
		Action:  serveAction,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the server (default)",
				Flags:  serveFlags,
				Action: serveAction,
			},
			{
				Name:      "cli",
				Usage:     "connect to a server and run commands",
				ArgsUsage: "[cmd [arg ...]]",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "host", Value: "127.0.0.1", Usage: "server hostname"},
					&cli.IntFlag{Name: "port", Aliases: []string{"p"}, Value: 6379, Usage: "server port"},
					&cli.BoolFlag{Name: "raw", Usage: "use raw formatting for replies"},
					&cli.BoolFlag{Name: "no-raw", Usage: "force formatted output even when stdout is not a tty"},
				},
				Action: func(c *cli.Context) error {
					rc := cmd.NewRedisCli(c.String("host"), c.Int("port"))
					if c.Bool("raw") {
						rc.SetRaw(true)
					} else if c.Bool("no-raw") {
						rc.SetRaw(false)
					}
					return rc.Run(c.Args().Slice())
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
