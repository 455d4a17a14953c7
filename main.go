package main

import (
	"fmt"
	"os"

	"github.com/zeu5/tablesim-decider/commands"
)

// main entry point of the decision service
func main() {
	rootCommand := commands.GetRootCommand()
	if err := rootCommand.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
