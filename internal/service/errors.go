package service

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Skotchmaster/teslix_shop/internal/repo"
	"github.com/Skotchmaster/teslix_shop/pkg/events"
	"github.com/Skotchmaster/teslix_shop/pkg/logging"
)

var (
	ErrValidation         = errors.New("validation")             // 400
	ErrEmptyCart          = errors.New("cart is empty")          // 400
	ErrInvalidCredentials = errors.New("invalid credentials")    // 401
	ErrInvalidToken       = errors.New("invalid token")          // 401
	ErrUnauthorized       = errors.New("unauthorized")           // 403
	ErrForbidden          = errors.New("forbidden")              // 403
	ErrNotFound           = errors.New("not found")              // 404
	ErrConflict           = errors.New("conflict")               // 409
	ErrFeedUnavailable    = errors.New("price feed unavailable") // 503
)

// translate maps storage errors onto the service taxonomy. Infrastructure
// errors pass through unchanged.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return errors.Join(ErrNotFound, err)
	case errors.Is(err, repo.ErrAlreadyExists), errors.Is(err, gorm.ErrDuplicatedKey):
		return errors.Join(ErrConflict, err)
	case errors.Is(err, repo.ErrStaleCart), errors.Is(err, repo.ErrProductInUse):
		return errors.Join(ErrConflict, err)
	case errors.Is(err, repo.ErrNotOwner):
		return errors.Join(ErrForbidden, err)
	}
	return err
}

func publish(ctx context.Context, p events.Publisher, topic, key string, event map[string]any) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, topic, key, event); err != nil {
		logging.FromContext(ctx).Warn("event_publish_error", "topic", topic, "type", event["type"], "error", err)
	}
}
