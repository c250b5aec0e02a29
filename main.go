package main

import "StemShare/cmd"

func main() {
	cmd.Execute()
}
