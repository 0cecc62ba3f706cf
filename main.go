package main

import "github.com/tanq16/streamz/cmd"

func main() {
	cmd.Execute()
}
