package main

import "github.com/mcoot/seabattle-lobby/internal/cli"

func main() {
	cli.Execute()
}
