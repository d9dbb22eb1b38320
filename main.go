package main

import (
	"log"

	"github.com/spigell/signal-fusion/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
