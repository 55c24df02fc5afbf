package main

import "colabwize/api/internal/cli"

func main() {
	cli.Execute()
}
