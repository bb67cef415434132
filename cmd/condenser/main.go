package main

import "github.com/DeFirence/steam-condenser/cmd/condenser/cmd"

func main() {
	cmd.Execute()
}
