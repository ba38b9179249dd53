package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/JonMunkholm/eventpipe/internal/web"
	"github.com/spf13/cobra"
)

var signalNotifyContext = signal.NotifyContext

func newServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve read-only table counts and checks over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := runtimeFromCommand(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("host") {
				rt.Config.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				rt.Config.Server.Port = port
			}

			ctx, stop := signalNotifyContext(cmd.Context(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			cmd.SetContext(ctx)

			return classify(rt.withPipeline(cmd, func(ctx context.Context, p Pipeline) error {
				srv := web.NewServer(p, rt.tables(), rt.Config.Server)
				return srv.ListenAndServe(ctx)
			}))
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Interface to bind (default: SERVER_HOST)")
	cmd.Flags().IntVar(&port, "port", 0, "Port to listen on (default: SERVER_PORT)")

	return cmd
}
