// seed creates the schema, an admin user and one team in the local dev
// database. Re-running it is safe.
// Run: go run ./cmd/seed
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"golang.org/x/crypto/bcrypt"

	"github.com/srivastavahk/TaskFlow/internal/domain"
	"github.com/srivastavahk/TaskFlow/internal/infrastructure/postgres"
)

const (
	seedName     = "Seed Admin"
	seedEmail    = "admin@taskflow.local"
	seedPassword = "Password123!"
	seedTeam     = "Eng"
)

func main() {
	ctx := context.Background()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	pool, err := postgres.NewPool(ctx, dbURL)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer pool.Close()

	if err := postgres.ApplySchema(ctx, pool); err != nil {
		log.Fatalf("%v", err)
	}

	users := postgres.NewUserRepository(pool)
	teams := postgres.NewTeamRepository(pool)

	user, created, err := ensureUser(ctx, users)
	if err != nil {
		log.Fatalf("seed user: %v", err)
	}

	team, err := ensureTeam(ctx, teams, user.ID)
	if err != nil {
		log.Fatalf("seed team: %v", err)
	}

	fmt.Println("Seed complete")
	fmt.Println()
	fmt.Printf("  User:     %s (created: %t)\n", seedEmail, created)
	fmt.Printf("  Password: %s\n", seedPassword)
	fmt.Printf("  User ID:  %s\n", user.ID)
	fmt.Printf("  Team:     %s (%s), you are admin\n", team.Name, team.ID)
	fmt.Println()
	fmt.Println("How to test:")
	fmt.Println()
	fmt.Println("  Step 1: log in")
	fmt.Println()
	fmt.Printf("    curl -s -X POST http://localhost:8080/auth/login \\\n")
	fmt.Printf("      -H 'Content-Type: application/json' \\\n")
	fmt.Printf("      -d '{\"email\":\"%s\",\"password\":\"%s\"}'\n", seedEmail, seedPassword)
	fmt.Println("    # → {\"accessToken\":\"eyJ...\", ...}")
	fmt.Println()
	fmt.Println("  Step 2: invite someone")
	fmt.Println()
	fmt.Println("    export JWT=eyJ...")
	fmt.Printf("    curl -s -X POST http://localhost:8080/teams/%s/invite \\\n", team.ID)
	fmt.Println("      -H \"Authorization: Bearer $JWT\" -H 'Content-Type: application/json' \\")
	fmt.Println("      -d '{\"email\":\"bob@example.com\"}'")
	fmt.Println("    # with ENV=local the invitation link is printed in the server log")
	fmt.Println()
	fmt.Println("  Step 3: register bob, log in as bob, then accept:")
	fmt.Println()
	fmt.Println("    curl -s -X POST http://localhost:8080/teams/invite/accept \\")
	fmt.Println("      -H \"Authorization: Bearer $BOB_JWT\" -H 'Content-Type: application/json' \\")
	fmt.Println("      -d '{\"token\":\"TOKEN_FROM_LINK\"}'")
}

func ensureUser(ctx context.Context, users *postgres.UserRepository) (*domain.User, bool, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(seedPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, false, fmt.Errorf("hash password: %w", err)
	}

	user, err := users.Create(ctx, &domain.User{
		Name:         seedName,
		Email:        seedEmail,
		PasswordHash: string(hash),
		Status:       domain.UserStatusActive,
	})
	if err == nil {
		return user, true, nil
	}
	if !errors.Is(err, domain.ErrEmailTaken) {
		return nil, false, err
	}

	user, err = users.FindByEmail(ctx, seedEmail)
	if err != nil {
		return nil, false, err
	}
	return user, false, nil
}

func ensureTeam(ctx context.Context, teams *postgres.TeamRepository, ownerID string) (*domain.Team, error) {
	existing, err := teams.ListByUserID(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	for _, t := range existing {
		if t.Name == seedTeam {
			return t, nil
		}
	}

	desc := "Seeded team"
	return teams.CreateWithAdmin(ctx, &domain.Team{
		Name:        seedTeam,
		Description: &desc,
		CreatedBy:   ownerID,
	})
}
