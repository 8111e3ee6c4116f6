// ABOUTME: Interactive terminal UI subcommand
// ABOUTME: Mounts one view session and hands it to the bubbletea program
package cli

import (
	"context"
	"fmt"

	"github.com/harperreed/pipeboard/tui"
	"github.com/harperreed/pipeboard/view"
)

func (a *App) TUICommand(ctx context.Context) error {
	if !a.Interactive {
		return fmt.Errorf("tui needs an interactive terminal")
	}

	sess, err := view.Mount(ctx, a.Store, a.Deps())
	if err != nil {
		return err
	}
	defer sess.Close()

	return tui.Run(ctx, sess, a.Store)
}
