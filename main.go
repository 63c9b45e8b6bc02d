package main

import "github.com/Layr-Labs/delegate-tracker/cmd"

func main() {
	cmd.Execute()
}
