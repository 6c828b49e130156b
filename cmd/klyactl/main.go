package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/klya-ai/klya-api/internal/cli"
)

func main() {
	_ = godotenv.Load()

	if err := cli.Execute(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
