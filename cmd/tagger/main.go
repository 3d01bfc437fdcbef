package main

import "github.com/tenderpulse/tagger/internal/cli"

func main() {
	cli.Execute()
}
