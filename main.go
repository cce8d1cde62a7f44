package main

import (
	"github.com/sw33tLie/fruitjar/cmd"
)

func main() {
	cmd.Execute()
}
