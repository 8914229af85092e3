package main

import "tryit/internal/cli"

func main() {
	cli.Main()
}
