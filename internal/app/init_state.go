package app

import (
	"context"
	"fmt"

	"github.com/router-for-me/FRPPanel/internal/models"
	"github.com/router-for-me/FRPPanel/internal/query"
)

// HasAdminInitialized reports whether the store holds at least one admin account.
func HasAdminInitialized(ctx context.Context, facade *query.Facade) (bool, error) {
	if facade == nil {
		return false, fmt.Errorf("nil facade")
	}
	count, err := facade.Count(ctx, models.CollectionUsers, query.ByAdmin{})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
