package main

import (
	"samplecrate/cmd"
)

func main() {
	cmd.Execute()
}
