/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"ledger-admin-go/internal/auth"
	"ledger-admin-go/internal/common"
	"ledger-admin-go/internal/config"
	"ledger-admin-go/internal/models"
	"ledger-admin-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if len(name) < 2 {
		return fmt.Errorf("name must be at least 2 characters")
	}
	return nil
}

func parseRole(role string) (models.Role, error) {
	switch r := models.Role(strings.ToLower(role)); r {
	case models.RoleAdmin, models.RoleService, models.RoleUser:
		return r, nil
	default:
		return "", fmt.Errorf("unknown role %q (admin, service or user)", role)
	}
}

// claimRole returns the role claim the verifier maps back to role
func claimRole(cfg models.AuthConfig, role models.Role) models.Role {
	switch {
	case role == models.RoleAdmin && cfg.AdminRole != "":
		return models.Role(cfg.AdminRole)
	case role == models.RoleService && cfg.ServiceRole != "":
		return models.Role(cfg.ServiceRole)
	}
	return role
}

func main() {
	ctx := context.Background()

	nameFlag := flag.String("name", "", "User's display name (required)")
	emailFlag := flag.String("email", "", "User's email address (required)")
	idFlag := flag.String("id", "", "User id from the identity provider (default: new UUID)")
	roleFlag := flag.String("token-role", "", "Also print a signed development token with this role (admin, service, user)")
	ttlFlag := flag.Duration("token-ttl", 24*time.Hour, "Lifetime of the development token")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	_, loggerCleanup := common.InitializeLogger(cfg.Log)
	defer loggerCleanup()

	if *nameFlag == "" || *emailFlag == "" {
		zap.L().Fatal("Both flags are required: --name and --email")
	}
	if err := validateName(*nameFlag); err != nil {
		zap.L().Fatal("Invalid name", zap.Error(err))
	}

	var role models.Role
	if *roleFlag != "" {
		if role, err = parseRole(*roleFlag); err != nil {
			zap.L().Fatal("Invalid token role", zap.Error(err))
		}
		if cfg.Auth.JWTSecret == "" {
			zap.L().Fatal("AUTH_JWT_SECRET must be set to sign a token")
		}
	}

	userId := *idFlag
	if userId == "" {
		userId = uuid.New().String()
	}

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	zap.L().Info("Provisioning account",
		zap.String("user_id", userId),
		zap.String("name", *nameFlag),
		zap.String("email", *emailFlag))

	account, err := services.Ledger.ProvisionAccount(ctx, userId, *emailFlag, *nameFlag)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateAccount) {
			zap.L().Fatal("Account already exists with this id or email", zap.String("email", *emailFlag))
		}
		zap.L().Fatal("Failed to provision account", zap.Error(err))
	}

	common.PrintHeader("ACCOUNT CREATED", common.DefaultWidth)
	fmt.Printf("ID:      %s\n", account.UserId)
	fmt.Printf("Name:    %s\n", account.DisplayName)
	fmt.Printf("Email:   %s\n", account.Email)
	fmt.Printf("KYC:     %s\n", account.KYCStatus)
	fmt.Printf("Status:  %s\n", account.AccountStatus)
	fmt.Printf("Outcome: %s (%s)\n", account.TradeOutcomeMode, account.TradeOutcomeScope)

	if role != "" {
		token, err := auth.Sign(cfg.Auth.JWTSecret, models.Actor{Id: account.UserId, Email: account.Email, Role: claimRole(cfg.Auth, role)}, *ttlFlag)
		if err != nil {
			zap.L().Fatal("Failed to sign token", zap.Error(err))
		}
		common.PrintSeparator("-", common.DefaultWidth)
		fmt.Printf("Token (%s, expires in %s):\n%s\n", role, ttlFlag.String(), token)
	}
	common.PrintSeparator("=", common.DefaultWidth)

	zap.L().Info("Account created successfully", zap.String("user_id", account.UserId))
}
