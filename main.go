package main

import "github.com/collaborationFactory/github-actions/cmd"

func main() {
	cmd.Execute()
}
