package main

import "github.com/punchamoorthee/flightops/internal/cli"

func main() {
	cli.Execute()
}
