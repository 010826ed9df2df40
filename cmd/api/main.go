package main

import (
	"github.com/joho/godotenv"

	"github.com/blackpearlke/blackpearl-api/internal/cmd"
)

func main() {
	// Local .env feeds viper's AutomaticEnv; absence is fine.
	_ = godotenv.Load()

	cmd.Execute()
}
