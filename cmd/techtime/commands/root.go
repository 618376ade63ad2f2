// Package commands holds the techtime command tree and its actions.
package commands

import (
	"github.com/urfave/cli/v3"
)

// Root returns the techtime command tree.
func Root() *cli.Command {
	return &cli.Command{
		Name:  "techtime",
		Usage: "Track technician jobs, scan job cards and manage backups",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "env",
				Usage: "environment file path",
				Value: ".env",
			},
		},
		Commands: []*cli.Command{
			jobCommand(),
			summaryCommand(),
			scanCommand(),
			backupCommand(),
			settingsCommand(),
		},
	}
}
