package main

import "uiccscan/cmd"

func main() {
	cmd.Execute()
}
