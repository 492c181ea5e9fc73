package main

import "github.com/agentic-research/veil/cmd"

func main() {
	cmd.Execute()
}
