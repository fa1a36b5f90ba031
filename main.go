package main

import "haltwatch/internal/cli"

func main() {
	cli.Execute()
}
