package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomonion/n8n-nodes-netdevices-ubuntu-sub000/simulate"
)

var (
	simListen string
	simFile   string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Serve simulated devices over SSH for testing",
	Long: `Start an SSH server that emulates network device CLIs. The login user name
selects the device, for example 'ssh core-1@127.0.0.1 -p 2222'.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := simulate.ServerConfig{AllowForward: true}
		if simFile != "" {
			loaded, err := simulate.LoadConfig(simFile)
			if err != nil {
				return err
			}
			cfg = loaded
		}
		if simListen != "" {
			cfg.Listen = simListen
		}
		srv, err := simulate.NewServer(cfg)
		if err != nil {
			return err
		}
		if err := srv.Start(); err != nil {
			return err
		}
		defer srv.Stop()
		fmt.Fprintf(cmd.OutOrStdout(), "simulated devices listening on %s\n", srv.Addr())

		ctx, cancel := signalContext()
		defer cancel()
		<-ctx.Done()
		return nil
	},
}

func init() {
	simulateCmd.Flags().StringVarP(&simListen, "listen", "l", "", "Listen address (default from file or a random local port)")
	simulateCmd.Flags().StringVarP(&simFile, "file", "f", "", "Simulated device definitions (simulate.yaml)")
}
