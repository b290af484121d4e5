// Command create-admin adds an administrator account with generated credentials.
package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"

	"gorm.io/gorm"

	"PartTimeJob-backend/internal/config"
	"PartTimeJob-backend/internal/database"
	"PartTimeJob-backend/internal/model"
)

// generateRandomString creates a random hex string of n bytes
func generateRandomString(n int) (string, error) {
	bytes := make([]byte, n)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// generateUniqueUsername tries until a free username is found
func generateUniqueUsername(db *gorm.DB) (string, error) {
	for {
		suffix, err := generateRandomString(4)
		if err != nil {
			return "", err
		}
		username := "admin_" + suffix
		var count int64
		if err := db.Model(&model.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
			return "", err
		}
		if count == 0 {
			return username, nil
		}
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(cfg.NewLogger())

	db, err := database.GetMainDB(cfg)
	if err != nil {
		slog.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	username, err := generateUniqueUsername(db.DB)
	if err != nil {
		slog.Error("failed to pick a username", "error", err)
		os.Exit(1)
	}
	password, err := generateRandomString(8)
	if err != nil {
		slog.Error("failed to generate password", "error", err)
		os.Exit(1)
	}

	admin, err := database.CreateUser(db.DB, username, password, model.RoleAdmin)
	if err != nil {
		slog.Error("failed to create admin", "error", err)
		os.Exit(1)
	}

	// Only place the plain password is ever shown
	fmt.Println("Admin credentials generated successfully!")
	fmt.Println("======================================")
	fmt.Printf("Username: %s\n", admin.Username)
	fmt.Printf("Password: %s\n", password)
	fmt.Println("======================================")
}
