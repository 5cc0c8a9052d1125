package main

import "gst-research/internal/commands"

func main() {
	commands.Execute()
}
