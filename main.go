package main

import "github.com/ethpandaops/validator-vault/cmd"

func main() {
	cmd.Execute()
}
