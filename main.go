package main

import (
	"os"

	"github.com/frherrer/shellspec/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
