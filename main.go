package main

import (
	"os"

	"github.com/PolarWolf314/lockbox/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
