package main

import (
	"fmt"
	"os"

	"github.com/scripty/hub-server-go/internal/util"
)

// Prints a bcrypt hash for HUB_AUTH_KEY_HASH. Without an argument a new
// random key is generated and printed as well.
func main() {
	key := ""
	if len(os.Args) >= 2 {
		key = os.Args[1]
	} else {
		generated, err := util.GenerateKey()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		key = generated
		fmt.Printf("HUB_AUTH_KEY=%s\n", key)
	}

	hash, err := util.HashKey(key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("HUB_AUTH_KEY_HASH=%s\n", hash)
}
