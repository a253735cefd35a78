// Command createuser provisions a user account from the command line.
// There is no self-service signup; accounts are created by operators.
// Usage: go run ./cmd/createuser -email ops@garage.co.uk -name "Ops User" -role admin
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"syscall"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	"motscan/internal/config"
	"motscan/internal/domain"
	"motscan/internal/repository/postgres"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	email := flag.String("email", "", "user email (required)")
	name := flag.String("name", "", "full name (required)")
	role := flag.String("role", "reviewer", "role: admin or reviewer")
	flag.Parse()

	if *email == "" || *name == "" {
		flag.Usage()
		os.Exit(1)
	}

	userRole := domain.UserRole(*role)
	if userRole != domain.RoleAdmin && userRole != domain.RoleReviewer {
		return fmt.Errorf("invalid role %q, must be admin or reviewer", *role)
	}

	fmt.Fprint(os.Stderr, "Password: ")
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fmt.Errorf("reading password: %w", err)
	}
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword(password, bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	db, err := postgres.NewDB(&cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	user := &domain.User{
		Email:        *email,
		PasswordHash: string(hash),
		FullName:     *name,
		Role:         userRole,
		IsActive:     true,
	}
	if err := postgres.NewUserRepo(db).Create(context.Background(), user); err != nil {
		return fmt.Errorf("creating user: %w", err)
	}

	log.Printf("created user %s (%s, role=%s)", user.ID, user.Email, user.Role)
	return nil
}
