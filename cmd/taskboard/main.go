package main

import "github.com/nimburion/taskboard/pkg/cli"

func main() {
	cli.Execute(cli.NewRootCommand(cli.Options{
		Name:        "taskboard",
		Description: "Todo, user and role management API",
	}))
}
