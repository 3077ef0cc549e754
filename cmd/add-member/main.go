package main

import (
	"context"
	"fmt"
	"os"

	"github.com/dimitrije/personal-secrets/internal/config"
	"github.com/dimitrije/personal-secrets/internal/database"
	"github.com/dimitrije/personal-secrets/internal/services"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

func main() {
	if len(os.Args) != 3 {
		fmt.Println("Usage: add-member <organization-id> <email>")
		os.Exit(1)
	}

	orgID, err := uuid.Parse(os.Args[1])
	if err != nil {
		logrus.Fatalf("Invalid organization id: %v", err)
	}
	email := os.Args[2]

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	log := cfg.NewLogger()

	ctx := context.Background()

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	orgService := services.NewOrganizationService(db)
	userService := services.NewUserService(db)

	org, err := orgService.GetByID(ctx, orgID)
	if err != nil {
		log.Fatalf("Failed to find organization: %v", err)
	}

	user, err := userService.GetByEmail(ctx, email)
	if err != nil {
		log.Fatalf("No user found with email %s: %v", email, err)
	}

	if err := orgService.AddMember(ctx, org.ID, user.ID); err != nil {
		log.Fatalf("Failed to add member: %v", err)
	}

	fmt.Printf("Successfully added %s to %s\n", email, org.Name)
}
