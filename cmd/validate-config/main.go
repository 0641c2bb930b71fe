package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/foodscan/foodscan-api/internal/config"
)

func main() {
	fmt.Println("🔍 Validating configuration...")

	if err := godotenv.Load(); err != nil {
		fmt.Printf("⚠️  no .env file found: %v\n", err)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("❌ Configuration is invalid:\n%v\n", err)
		os.Exit(1)
	}

	fmt.Println("✅ Configuration is valid!")
	fmt.Printf("📋 Details:\n")
	fmt.Printf("  - Env: %s\n", cfg.Env)
	fmt.Printf("  - AI Provider: %s\n", cfg.AIProvider)
	fmt.Printf("  - Gemini API Key: %s\n", maskToken(cfg.GeminiAPIKey))
	fmt.Printf("  - OpenAI API Key: %s\n", maskToken(cfg.OpenAIAPIKey))
	fmt.Printf("  - Server Port: %s\n", cfg.Server.Port)
	fmt.Printf("  - Catalog URL: %s\n", cfg.Catalog.BaseURL)
	fmt.Printf("  - DB Host: %s\n", cfg.DB.Host)
	fmt.Printf("  - DB Port: %s\n", cfg.DB.Port)
	fmt.Printf("  - DB Name: %s\n", cfg.DB.DBName)
	fmt.Printf("  - Redis Cache: %v\n", cfg.Redis.CacheEnabled())
	fmt.Printf("  - Log Level: %v\n", cfg.Logger.Level)
	fmt.Printf("  - Log Output: %s\n", cfg.Logger.OutputPath)
	fmt.Printf("  - Log Format: %s\n", cfg.Logger.Format)
}

func maskToken(token string) string {
	if token == "" {
		return "<not set>"
	}
	if len(token) <= 8 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}
