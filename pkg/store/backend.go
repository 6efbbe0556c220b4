package store

import (
	"context"

	"arenachat/pkg/models"
)

// Backend adapts the package-level store functions to the persistence
// surface the delivery pipeline consumes.
type Backend struct{}

func (Backend) GetThread(ctx context.Context, id string) (models.Thread, error) {
	if err := ctx.Err(); err != nil {
		return models.Thread{}, err
	}
	return GetThread(id)
}

func (Backend) ListMessages(ctx context.Context, threadID string) ([]models.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ListMessages(threadID)
}

func (Backend) InsertMessage(ctx context.Context, m models.Message) (models.Message, error) {
	if err := ctx.Err(); err != nil {
		return models.Message{}, err
	}
	return SaveMessage(m)
}
