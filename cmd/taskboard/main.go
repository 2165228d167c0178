package main

import "github.com/phonginreallife/taskboard/internal/cli"

func main() {
	cli.Execute()
}
