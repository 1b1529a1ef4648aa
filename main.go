package main

import (
	"github.com/daedaleanai/nap/cmd"
)

func main() {
	cmd.Execute()
}
