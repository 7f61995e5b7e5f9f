package main

import "bear-monitor/internal/cli"

func main() {
	cli.Execute()
}
