package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/recipebook/internal/app"
)

func main() {
	if len(os.Args) > 1 && (os.Args[1] == "-h" || os.Args[1] == "--help") {
		fmt.Println(app.Usage())
		return
	}

	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "recipebook: %v\n", err)
		os.Exit(1)
	}
}
