package main

import "github.com/chida-tennis/chida-crawler/internal/cli"

func main() {
	cli.Execute()
}
