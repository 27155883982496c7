package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Skotchmaster/teslix_shop/internal/models"
	"github.com/Skotchmaster/teslix_shop/internal/repo"
	"github.com/Skotchmaster/teslix_shop/internal/transport"
	"github.com/Skotchmaster/teslix_shop/pkg/events"
)

type AccountService struct {
	Repo   *repo.GormRepo
	Events events.Publisher
}

func (s *AccountService) Profile(ctx context.Context, userID uint) (*models.User, error) {
	u, err := s.Repo.GetUserByID(ctx, userID)
	return u, translate(err)
}

func (s *AccountService) UpdateProfile(ctx context.Context, userID uint, username, email string) (*models.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" {
		return nil, fmt.Errorf("%w: username and email required", ErrValidation)
	}

	u, err := s.Repo.UpdateProfile(ctx, userID, username, email)
	if err != nil {
		return nil, translate(err)
	}
	publish(ctx, s.Events, events.UserTopic, key(u.ID), map[string]any{
		"type":     "user_updated",
		"userID":   u.ID,
		"username": u.Username,
	})
	return u, nil
}

// DeleteAccount removes the user with their cart, orders, payments and tokens.
func (s *AccountService) DeleteAccount(ctx context.Context, userID uint) error {
	if err := s.Repo.DeleteUser(ctx, userID); err != nil {
		return translate(err)
	}
	publish(ctx, s.Events, events.UserTopic, key(userID), map[string]any{
		"type":   "user_deleted",
		"userID": userID,
	})
	return nil
}

func (s *AccountService) Dashboard(ctx context.Context, userID uint) (*transport.Dashboard, error) {
	u, err := s.Repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, translate(err)
	}
	orders, err := s.Repo.ListOrdersByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	payments, err := s.Repo.ListPaymentsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &transport.Dashboard{User: u, Orders: orders, Payments: payments}, nil
}
