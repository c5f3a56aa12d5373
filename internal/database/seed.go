package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5"
	"gopkg.in/yaml.v3"

	"signage-studio/internal/model"
)

// Seed is the development fixture loaded from SEED_FILE.
type Seed struct {
	Campaigns []SeedCampaign `yaml:"campaigns"`
}

type SeedCampaign struct {
	ID        int64          `yaml:"id"`
	Name      string         `yaml:"name"`
	Timelines []SeedTimeline `yaml:"timelines"`
}

type SeedTimeline struct {
	ID            int64          `yaml:"id"`
	Name          string         `yaml:"name"`
	SequenceIndex int            `yaml:"sequence_index"`
	ScreenProps   map[string]any `yaml:"screen_props"`
	Blocks        []SeedBlock    `yaml:"blocks"`
}

type SeedBlock struct {
	ID          int64        `yaml:"id"`
	Type        string       `yaml:"type"`
	Name        string       `yaml:"name"`
	Description string       `yaml:"description"`
	Icon        string       `yaml:"icon"`
	Length      model.Length `yaml:"length"`
}

func LoadSeedFile(path string) (Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, fmt.Errorf("read seed file: %w", err)
	}
	return ParseSeed(data)
}

func ParseSeed(data []byte) (Seed, error) {
	var s Seed
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Seed{}, fmt.Errorf("parse seed: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Seed{}, err
	}
	return s, nil
}

func (s Seed) Validate() error {
	timelines := map[int64]bool{}
	blocks := map[int64]bool{}

	for _, c := range s.Campaigns {
		if c.ID <= 0 {
			return fmt.Errorf("%w: campaign id must be positive", model.ErrInvalidInput)
		}
		for _, t := range c.Timelines {
			if t.ID <= 0 || timelines[t.ID] {
				return fmt.Errorf("%w: timeline id %d is invalid or repeated", model.ErrInvalidInput, t.ID)
			}
			if t.SequenceIndex < 0 {
				return fmt.Errorf("%w: timeline %d", model.ErrInvalidIndex, t.ID)
			}
			timelines[t.ID] = true

			for _, b := range t.Blocks {
				if b.ID <= 0 || blocks[b.ID] {
					return fmt.Errorf("%w: block id %d is invalid or repeated", model.ErrInvalidInput, b.ID)
				}
				if err := b.Length.Validate(); err != nil {
					return fmt.Errorf("block %d: %w", b.ID, err)
				}
				blocks[b.ID] = true
			}
		}
	}
	return nil
}

// screenProps renders the timeline's screen properties as JSON. The timeline id
// is stamped into the first group so the console can recover it.
func (t SeedTimeline) screenProps() ([]byte, error) {
	props := t.ScreenProps
	if props == nil {
		props = map[string]any{}
	}
	if _, ok := props["sd0"]; !ok {
		props["sd0"] = map[string]any{}
	}
	if group, ok := props["sd0"].(map[string]any); ok {
		if _, set := group["campaign_timeline_id"]; !set {
			group["campaign_timeline_id"] = t.ID
		}
	}
	return json.Marshal(props)
}

// ApplySeed inserts the fixture in one transaction. Existing rows are kept.
func (db *DB) ApplySeed(ctx context.Context, s Seed) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin seed transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, c := range s.Campaigns {
		if _, err := tx.Exec(ctx,
			`INSERT INTO campaigns (id, name) VALUES ($1, $2) ON CONFLICT (id) DO NOTHING`,
			c.ID, c.Name); err != nil {
			return fmt.Errorf("seed campaign %d: %w", c.ID, err)
		}

		for _, t := range c.Timelines {
			props, err := t.screenProps()
			if err != nil {
				return fmt.Errorf("encode screen props for timeline %d: %w", t.ID, err)
			}
			if _, err := tx.Exec(ctx,
				`INSERT INTO timelines (id, campaign_id, name, screen_props)
				 VALUES ($1, $2, $3, $4) ON CONFLICT (id) DO NOTHING`,
				t.ID, c.ID, t.Name, props); err != nil {
				return fmt.Errorf("seed timeline %d: %w", t.ID, err)
			}
			if _, err := tx.Exec(ctx,
				`INSERT INTO campaign_sequences (timeline_id, campaign_id, sequence_index)
				 VALUES ($1, $2, $3) ON CONFLICT (timeline_id) DO NOTHING`,
				t.ID, c.ID, t.SequenceIndex); err != nil {
				return fmt.Errorf("seed sequence for timeline %d: %w", t.ID, err)
			}

			batch := &pgx.Batch{}
			for _, b := range t.Blocks {
				batch.Queue(
					`INSERT INTO blocks (id, timeline_id, block_type, name, description, icon,
					                     length_hours, length_minutes, length_seconds)
					 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) ON CONFLICT (id) DO NOTHING`,
					b.ID, t.ID, b.Type, b.Name, b.Description, b.Icon,
					b.Length.Hours, b.Length.Minutes, b.Length.Seconds)
			}
			if err := tx.SendBatch(ctx, batch).Close(); err != nil {
				return fmt.Errorf("seed blocks for timeline %d: %w", t.ID, err)
			}
		}
	}

	for _, table := range []string{"campaigns", "timelines", "blocks"} {
		if _, err := tx.Exec(ctx, fmt.Sprintf(
			`SELECT setval(pg_get_serial_sequence('%s', 'id'), GREATEST((SELECT MAX(id) FROM %s), 1))`,
			table, table)); err != nil {
			return fmt.Errorf("advance %s id sequence: %w", table, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}

	slog.Info("seed applied", "campaigns", len(s.Campaigns))
	return nil
}

// Models converts the fixture into the records an in-memory gateway holds.
func (s Seed) Models() ([]model.Timeline, []model.Block, error) {
	var timelines []model.Timeline
	var blocks []model.Block
	for _, c := range s.Campaigns {
		for _, t := range c.Timelines {
			props, err := t.screenProps()
			if err != nil {
				return nil, nil, fmt.Errorf("encode screen props for timeline %d: %w", t.ID, err)
			}
			timelines = append(timelines, model.Timeline{
				ID:            t.ID,
				CampaignID:    c.ID,
				Name:          t.Name,
				SequenceIndex: t.SequenceIndex,
				ScreenProps:   props,
			})
			for _, b := range t.Blocks {
				blocks = append(blocks, model.Block{
					ID:          b.ID,
					TimelineID:  t.ID,
					Type:        b.Type,
					Name:        b.Name,
					Description: b.Description,
					Icon:        b.Icon,
					Length:      b.Length,
				})
			}
		}
	}
	return timelines, blocks, nil
}
