package main

import "github.com/azqeurio/sequential-selecter/cmd"

func main() {
	cmd.Execute()
}
