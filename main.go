package main

import "github.com/theirongolddev/cfplan/cmd"

func main() {
	cmd.Execute()
}
