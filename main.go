package main

import "aum/cmd"

func main() {
	cmd.Execute()
}
