package main

import "pogocal/eventworker/internal/cli"

func main() {
	cli.Execute()
}
