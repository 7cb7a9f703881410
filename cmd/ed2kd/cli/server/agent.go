package server

import (
	"context"
	"fmt"

	"github.com/heroku-miraheze/ed2kd/internal/agent"
	"github.com/spf13/cobra"

	config "github.com/heroku-miraheze/ed2kd/internal/config/server"
)

func NewAgentCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Start the ed2kd catalog agent",
		Long:  `Start the ed2kd catalog agent`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadServerConfig()
			if err != nil {
				return fmt.Errorf("failed to load server configuration: %w", err)
			}

			agent := agent.NewAgent(cfg)
			if err := agent.Serve(context.Background()); err != nil {
				print(err)
				return err
			}

			return nil
		},
	}

	return cmd
}
