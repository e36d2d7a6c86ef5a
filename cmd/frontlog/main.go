package main

import "github.com/akave-ai/frontlog/internal/cmd"

func main() {
	cmd.Execute()
}
