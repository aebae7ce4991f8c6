package main

import "github.com/LENAX/alert-engine/pkg/cli/cmd"

func main() {
	cmd.Execute()
}
