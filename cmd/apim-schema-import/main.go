package main

import "apim-schema-import/internal/cli"

func main() {
	cli.Execute()
}
