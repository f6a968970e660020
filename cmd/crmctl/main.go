package main

import (
	"github.com/joho/godotenv"

	"github.com/minicrm/backend/internal/cli"
	"github.com/minicrm/backend/internal/logging"
)

func main() {
	_ = godotenv.Load()
	logging.Setup("warn")
	cli.Execute()
}
