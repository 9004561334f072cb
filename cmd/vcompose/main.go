package main

import "github.com/vcompose/vcompose/internal/cli"

func main() {
	cli.Main()
}
