package main

import (
	"math/rand"
	"time"

	"github.com/jord1e/lettuce-core/cmd"
)

func main() {
	rand.Seed(time.Now().UnixNano())

	cmd.Execute()
}
