package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/PauloHFS/goth-blog/internal/db"
	"github.com/PauloHFS/goth-blog/internal/services"
)

func RunCreateUser() {
	if len(os.Args) < 5 {
		fmt.Println("Usage: create-user <username> <email> <password>")
		os.Exit(1)
	}
	username, email, password := os.Args[2], os.Args[3], os.Args[4]

	cfg, dbConn := loadConsole()
	defer dbConn.Close()

	if err := db.RunMigrations(context.Background(), dbConn); err != nil {
		fmt.Printf("failed to run migrations: %v\n", err)
		os.Exit(1)
	}

	resolver, err := newResolver(cfg)
	if err != nil {
		fmt.Printf("failed to build token resolver: %v\n", err)
		os.Exit(1)
	}

	authService := services.NewAuthService(db.New(dbConn), resolver)
	user, err := authService.Register(context.Background(), services.RegisterInput{
		Username: username,
		Email:    email,
		Password: password,
	})
	if err != nil {
		fmt.Printf("failed to create user: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("User %s (%s) created successfully with id %d\n", user.Username, user.Email, user.ID)
}
