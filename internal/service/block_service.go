package service

import (
	"context"
	"fmt"
	"log/slog"

	"signage-studio/internal/event"
	"signage-studio/internal/model"
	"signage-studio/internal/repository"
)

type BlockService struct {
	blocks repository.BlockStore
	bus    event.Bus
}

func NewBlockService(blocks repository.BlockStore, bus event.Bus) *BlockService {
	return &BlockService{blocks: blocks, bus: bus}
}

func (s *BlockService) Length(ctx context.Context, blockID int64) (model.Length, error) {
	if err := positiveID("block_id", blockID); err != nil {
		return model.Length{}, err
	}
	return s.blocks.Length(ctx, blockID)
}

// SetLength applies the length if version is newer than the stored one. A stale
// write is not an error; the result reports it as not applied.
func (s *BlockService) SetLength(ctx context.Context, blockID int64, length model.Length, version uint64) (model.WriteResult, error) {
	if err := positiveID("block_id", blockID); err != nil {
		return model.WriteResult{}, err
	}
	if err := length.Validate(); err != nil {
		return model.WriteResult{}, err
	}

	applied, err := s.blocks.SetLength(ctx, blockID, length, version)
	if err != nil {
		return model.WriteResult{}, err
	}

	if !applied {
		slog.Debug("stale length write ignored", "block_id", blockID, "version", version)
		return model.WriteResult{Applied: false, Version: version}, nil
	}

	s.bus.Publish(event.New(event.TypeBlockLengthChanged, map[string]any{
		"block_id": blockID,
		"length":   length,
	}))
	return model.WriteResult{Applied: true, Version: version}, nil
}

func (s *BlockService) RemoveFromChannel(ctx context.Context, blockID int64) error {
	if err := positiveID("block_id", blockID); err != nil {
		return err
	}
	if err := s.blocks.Remove(ctx, blockID); err != nil {
		return err
	}

	slog.Info("block removed from channel", "block_id", blockID)
	s.bus.Publish(event.New(event.TypeBlockRemoved, map[string]any{"block_id": blockID}))
	return nil
}

func positiveID(name string, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: %s must be positive", model.ErrInvalidInput, name)
	}
	return nil
}
