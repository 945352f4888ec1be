package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/winnerqin/jimeng4-image-generator/internal/config"
	"github.com/winnerqin/jimeng4-image-generator/internal/database"
	"github.com/winnerqin/jimeng4-image-generator/internal/services"
	"gorm.io/gorm"
)

const usage = `Usage: userctl <command> [args]

Commands:
  add <username> [password]       Create a user (prompts for password if omitted)
  list                            List all users
  password <username> [password]  Reset a user's password
  delete <username>               Delete a user and their generation records
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	switch os.Args[1] {
	case "add":
		cmdAdd(db, cfg, os.Args[2:])
	case "list":
		cmdList(db)
	case "password":
		cmdPassword(db, os.Args[2:])
	case "delete":
		cmdDelete(db, os.Args[2:])
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
}

func cmdAdd(db *gorm.DB, cfg *config.Config, args []string) {
	if len(args) < 1 {
		log.Fatal("add requires a username")
	}
	username := args[0]
	password := argOrPrompt(args, 1, "Password: ")

	id, err := services.CreateUser(db, cfg, username, password)
	if err != nil {
		log.Fatalf("Failed to create user: %v", err)
	}
	fmt.Printf("Created user %q (id %d)\n", username, id)
}

func cmdList(db *gorm.DB) {
	users, err := services.ListUsers(db)
	if err != nil {
		log.Fatalf("Failed to list users: %v", err)
	}
	if len(users) == 0 {
		fmt.Println("No users")
		return
	}

	fmt.Printf("%-6s %-20s %-20s %s\n", "ID", "USERNAME", "CREATED", "LAST LOGIN")
	for _, u := range users {
		lastLogin := "never"
		if u.LastLogin != nil {
			lastLogin = u.LastLogin.Format("2006-01-02 15:04:05")
		}
		fmt.Printf("%-6d %-20s %-20s %s\n", u.ID, u.Username, u.CreatedAt.Format("2006-01-02 15:04:05"), lastLogin)
	}
}

func cmdPassword(db *gorm.DB, args []string) {
	if len(args) < 1 {
		log.Fatal("password requires a username")
	}
	username := args[0]
	password := argOrPrompt(args, 1, "New password: ")

	if err := services.ChangePassword(db, username, password); err != nil {
		log.Fatalf("Failed to change password: %v", err)
	}
	fmt.Printf("Password updated for %q\n", username)
}

func cmdDelete(db *gorm.DB, args []string) {
	if len(args) < 1 {
		log.Fatal("delete requires a username")
	}
	username := args[0]

	fmt.Printf("Delete user %q and all their generation records? [y/N] ", username)
	reader := bufio.NewReader(os.Stdin)
	answer, _ := reader.ReadString('\n')
	if strings.ToLower(strings.TrimSpace(answer)) != "y" {
		fmt.Println("Aborted")
		return
	}

	deleted, err := services.DeleteUser(db, username)
	if err != nil {
		log.Fatalf("Failed to delete user: %v", err)
	}
	// Image files under the user's output directory are intentionally kept.
	fmt.Printf("Deleted user %q and %d records\n", username, deleted)
}

// argOrPrompt returns args[i] when present, otherwise reads a line from stdin.
func argOrPrompt(args []string, i int, prompt string) string {
	if len(args) > i {
		return args[i]
	}
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}
