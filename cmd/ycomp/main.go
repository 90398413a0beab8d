package main

import (
	"os"

	"github.com/alexreg/ycomp/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
