package main

import (
	"fmt"
	"os"

	"github.com/PauloHFS/goth-blog/internal/cmd"
	_ "github.com/mattn/go-sqlite3"
)

func main() {
	if len(os.Args) < 2 {
		cmd.RunServer()
		return
	}

	switch os.Args[1] {
	case "server":
		cmd.RunServer()
	case "seed":
		cmd.RunSeed()
	case "migrate":
		cmd.RunMigrate()
	case "create-user":
		cmd.RunCreateUser()
	case "help":
		showHelp()
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		showHelp()
		os.Exit(1)
	}
}

func showHelp() {
	fmt.Println("goth-blog - Single Binary Console")
	fmt.Println("Usage: ./goth-blog [command] [args]")
	fmt.Println("\nAvailable commands:")
	fmt.Println("  server       Start the API server (default)")
	fmt.Println("  migrate      Run database migrations")
	fmt.Println("  seed         Run migrations and seed demo users and posts")
	fmt.Println("  create-user  Create a new user (args: <username> <email> <password>)")
	fmt.Println("  help         Show this help message")
}
