package main

import "github.com/mcoot/duelgame/internal/cli"

func main() {
	cli.Execute()
}
