package main

import (
	"context"

	"github.com/avdunn/tunesync/internal/shared"
	"github.com/urfave/cli/v3"
)

// ConfigInit writes the example config file for editing.
func (r *Runner) ConfigInit(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("output")

	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}

	return r.writePlainln("Wrote %s. Fill in your remote service credentials before syncing.", path)
}
