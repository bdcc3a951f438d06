package main

import (
	"errors"
	"io/fs"
	"log"

	"github.com/joho/godotenv"

	"mission-planner/internal/cli"
)

func main() {
	// .env is optional; API keys may come from the real environment.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("Error loading .env file: %v", err)
	}

	cli.Execute()
}
