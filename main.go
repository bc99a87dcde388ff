package main

import "sfidfw/fw/cmd"

func main() {
	cmd.Execute()
}
