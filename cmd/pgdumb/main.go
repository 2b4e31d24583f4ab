package main

import (
	"os"

	"github.com/ak4code/pgdumb/internal/cli"
)

func main() {
	code := cli.Execute(os.Args[1:])
	os.Exit(code)
}
