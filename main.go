package main

import "github.com/dyike/TradeMind/internal/cli"

func main() {
	cli.Execute()
}
