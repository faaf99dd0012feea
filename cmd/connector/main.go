package main

import "github.com/vietddude/btc-connector/internal/cli"

func main() {
	cli.Execute()
}
