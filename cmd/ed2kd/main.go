package main

import (
	"fmt"
	"os"

	"github.com/heroku-miraheze/ed2kd/cmd/ed2kd/cli"
	"github.com/heroku-miraheze/ed2kd/cmd/ed2kd/cli/client"
	"github.com/heroku-miraheze/ed2kd/cmd/ed2kd/cli/server"
)

var (
	version = "0.0.1-dev"
	commit  = "main"
)

func main() {
	root := cli.NewRootCommand(cli.VersionInfo{
		Version: version,
		Commit:  commit,
	})

	root.AddCommand(cli.NewVersionCommand())

	root.AddCommand(server.NewAgentCommand())
	root.AddCommand(server.NewConfigCommand())

	root.AddCommand(client.NewCatalogCommand())

	if err := root.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
