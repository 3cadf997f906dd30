package main

import "github.com/notargets/gomoduli/cmd"

func main() {
	cmd.Execute()
}
