package app

import (
	"context"
	"fmt"

	"github.com/robotcare/maintenance-service/internal/domain"
	"github.com/robotcare/maintenance-service/internal/service"
)

// DemoAccounts are the organizations and users created by SeedDemo.
type DemoAccounts struct {
	Provider domain.Organization
	Customer domain.Organization
	Users    map[domain.Role]domain.User
}

var demoUsers = []struct {
	role  domain.Role
	name  string
	email string
}{
	{domain.RoleServiceAdmin, "Service Admin", "service.admin@robotcare.local"},
	{domain.RoleServiceEngineer, "Service Engineer", "service.engineer@robotcare.local"},
	{domain.RoleEndAdmin, "Plant Admin", "plant.admin@robotcare.local"},
	{domain.RoleEndEngineer, "Plant Engineer", "plant.engineer@robotcare.local"},
}

// SeedDemo creates one service provider, one customer and a user per role,
// all sharing the given password.
func SeedDemo(ctx context.Context, authService *service.AuthService, password string) (*DemoAccounts, error) {
	provider, err := authService.CreateOrganization(ctx, "RobotCare Services", domain.OrganizationServiceProvider)
	if err != nil {
		return nil, fmt.Errorf("seed provider: %w", err)
	}
	customer, err := authService.CreateOrganization(ctx, "Acme Manufacturing", domain.OrganizationCustomer)
	if err != nil {
		return nil, fmt.Errorf("seed customer: %w", err)
	}

	accounts := &DemoAccounts{
		Provider: *provider,
		Customer: *customer,
		Users:    make(map[domain.Role]domain.User, len(demoUsers)),
	}
	for _, u := range demoUsers {
		orgID := customer.ID
		if u.role == domain.RoleServiceAdmin || u.role == domain.RoleServiceEngineer {
			orgID = provider.ID
		}
		user, err := authService.CreateUser(ctx, service.UserCreateInput{
			Name:           u.name,
			Email:          u.email,
			Password:       password,
			Role:           u.role,
			OrganizationID: orgID,
		})
		if err != nil {
			return nil, fmt.Errorf("seed user %s: %w", u.email, err)
		}
		accounts.Users[u.role] = *user
	}
	return accounts, nil
}
