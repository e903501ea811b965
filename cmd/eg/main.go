package main

import "github.com/ogulcanaydogan/Expiry-Guardian/internal/cli"

func main() {
	cli.Execute()
}
