// Package main provides admin management utilities for Folio.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"folio/internal/bootstrap"
	"folio/internal/config"
	"folio/internal/identity"
	"folio/internal/models"

	"gorm.io/gorm"
)

func usage() {
	fmt.Println("Usage:")
	fmt.Println("  go run ./cmd/admin promote <user_id>                 - Promote user to admin")
	fmt.Println("  go run ./cmd/admin demote <user_id>                  - Demote user to reader")
	fmt.Println("  go run ./cmd/admin list-admins                       - List all admins")
	fmt.Println("  go run ./cmd/admin token [-role admin] [-ttl 24h] <user_id>")
	fmt.Println("                                                       - Issue a development token")
	fmt.Println("  go run ./cmd/admin revoke <token>                    - Revoke a token until it expires")
	os.Exit(1)
}

// Roles normally arrive in the identity provider's token; promote and demote
// set the stored role used when a token carries none.
func main() {
	if len(os.Args) < 2 {
		usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	command, args := os.Args[1], os.Args[2:]

	if command == "token" {
		issueToken(cfg, args)
		return
	}

	rt, err := bootstrap.InitRuntime(cfg, bootstrap.Options{SkipSchema: true})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}
	defer rt.Close()

	switch command {
	case "promote":
		if len(args) < 1 {
			usage()
		}
		setRole(rt.DB, args[0], models.RoleAdmin)
	case "demote":
		if len(args) < 1 {
			usage()
		}
		setRole(rt.DB, args[0], models.RoleReader)
	case "list-admins":
		listAdmins(rt.DB)
	case "revoke":
		if len(args) < 1 {
			usage()
		}
		revoke(cfg, rt, args[0])
	default:
		fmt.Printf("Unknown command: %s\n", command)
		os.Exit(1)
	}
}

func setRole(db *gorm.DB, userID, role string) {
	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fmt.Printf("User with ID %s not found\n", userID)
			os.Exit(1)
		}
		log.Fatalf("Database error: %v", err)
	}

	if user.Role == role {
		fmt.Printf("User %s (ID: %d) is already %s\n", user.Username, user.ID, role)
		return
	}

	if err := db.Model(&user).Update("role", role).Error; err != nil {
		log.Fatalf("Failed to update role: %v", err)
	}
	fmt.Printf("Set %s (ID: %d) to %s\n", user.Username, user.ID, role)
}

func listAdmins(db *gorm.DB) {
	var admins []models.User
	if err := db.Where("role = ?", models.RoleAdmin).Find(&admins).Error; err != nil {
		log.Fatalf("Failed to fetch admins: %v", err)
	}

	if len(admins) == 0 {
		fmt.Println("No admins found in the system")
		return
	}

	fmt.Println("Current admins:")
	for _, admin := range admins {
		fmt.Printf("ID: %d | Username: %s | Name: %s\n", admin.ID, admin.Username, admin.DisplayName)
	}
}

func issueToken(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	role := fs.String("role", "", "Role claim (reader or admin); empty keeps the stored role")
	username := fs.String("username", "", "preferred_username claim")
	ttl := fs.Duration("ttl", 24*time.Hour, "Token lifetime")
	_ = fs.Parse(args)
	if fs.NArg() < 1 {
		usage()
	}

	if cfg.Env == "production" {
		log.Fatal("Refusing to issue tokens in production; use the identity provider")
	}

	id, err := strconv.ParseUint(fs.Arg(0), 10, 32)
	if err != nil || id == 0 {
		log.Fatalf("Invalid user ID %q", fs.Arg(0))
	}
	if *username == "" {
		*username = "reader" + fs.Arg(0)
	}

	resolver := identity.NewJWTResolver(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, nil)
	token, err := resolver.Issue(identity.Identity{
		UserID:   uint(id),
		Username: *username,
		Role:     *role,
	}, *ttl)
	if err != nil {
		log.Fatalf("Failed to sign token: %v", err)
	}
	fmt.Println(token)
}

func revoke(cfg *config.Config, rt *bootstrap.Runtime, token string) {
	if rt.Redis == nil {
		log.Fatal("Revocation requires REDIS_URL")
	}
	resolver := identity.NewJWTResolver(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, rt.Redis)

	ctx := context.Background()
	id, err := resolver.Resolve(ctx, token)
	if err != nil {
		log.Fatalf("Token not accepted: %v", err)
	}
	if id.TokenID == "" {
		log.Fatal("Token has no ID and cannot be revoked")
	}
	if err := resolver.Revoke(ctx, id.TokenID, 30*24*time.Hour); err != nil {
		log.Fatalf("Failed to revoke: %v", err)
	}
	fmt.Printf("Revoked token %s for user %d\n", id.TokenID, id.UserID)
}
