package main

import "github.com/signetgate/signetgate/cmd/signet-gate/cmd"

func main() {
	cmd.Execute()
}
