package main

import "github.com/elliehq/ellie/internal/cli"

func main() {
	cli.Execute()
}
