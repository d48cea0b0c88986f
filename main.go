package main

import "github.com/vmtools/vsh/cmd"

func main() {
	cmd.Execute()
}
