package main

import "github.com/gcbaptista/go-vsr-engine/internal/cli"

func main() {
	cli.Execute()
}
