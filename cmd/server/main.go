package main

import "transport-register/cmd"

func main() {
	cmd.Run()
}
