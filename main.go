package main

import "github.com/philipparndt/modelforge/internal/cmd"

func main() {
	cmd.Parse()
}
