package main

import (
	"os"

	"github.com/alapierre/bahsig/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		// cobra has already printed the error
		os.Exit(1)
	}
}
