package main

import (
	"github.com/AzielCF/az-localseo/cmd"
)

func main() {
	cmd.Execute()
}
