// ABOUTME: HTTP server subcommand
// ABOUTME: Serves the board API until interrupted, then unmounts every view
package cli

import (
	"context"
	"flag"

	"github.com/harperreed/pipeboard/view"
	"github.com/harperreed/pipeboard/web"
)

// ServeCommand runs the HTTP API until ctx is cancelled.
func (a *App) ServeCommand(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(a.Out)
	addr := fs.String("addr", a.Config.HTTP.Addr, "Listen address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	srv := web.NewServer(web.Options{
		Store:       a.Store,
		Views:       view.NewRegistry(a.Store, a.Deps()),
		Vault:       a.Vault,
		Logger:      a.Logger,
		CORSOrigins: a.Config.HTTP.CORSOrigins,
	})
	return srv.Start(ctx, *addr)
}
