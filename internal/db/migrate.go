package db

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stackit/stackit/internal/models"
	"github.com/stackit/stackit/pkg/logging"
)

// constraints are applied after AutoMigrate. They back the engine's
// invariants when a caller bypasses it.
var constraints = []string{
	// one vote per user per target
	`CREATE UNIQUE INDEX IF NOT EXISTS votes_user_target_ux
		ON votes (user_id, COALESCE(question_id, -1), COALESCE(answer_id, -1))`,
	`ALTER TABLE votes DROP CONSTRAINT IF EXISTS votes_one_target_chk`,
	`ALTER TABLE votes ADD CONSTRAINT votes_one_target_chk
		CHECK (num_nonnulls(question_id, answer_id) = 1)`,
	`ALTER TABLE votes DROP CONSTRAINT IF EXISTS votes_type_chk`,
	`ALTER TABLE votes ADD CONSTRAINT votes_type_chk
		CHECK (vote_type IN ('upvote', 'downvote'))`,
	// at most one accepted answer per question
	`CREATE UNIQUE INDEX IF NOT EXISTS answers_one_accepted_ux
		ON answers (question_id) WHERE is_accepted`,
	`ALTER TABLE questions DROP CONSTRAINT IF EXISTS questions_status_chk`,
	`ALTER TABLE questions ADD CONSTRAINT questions_status_chk
		CHECK ((status = 'answered') = (accepted_answer_id IS NOT NULL))`,
	`ALTER TABLE notifications DROP CONSTRAINT IF EXISTS notifications_type_chk`,
	`ALTER TABLE notifications ADD CONSTRAINT notifications_type_chk
		CHECK (type IN ('answer', 'accept', 'upvote', 'downvote'))`,
	`CREATE INDEX IF NOT EXISTS notifications_user_unread_idx
		ON notifications (user_id, created_at DESC) WHERE NOT is_read`,
}

// DefaultTags are created by Seed
var DefaultTags = []string{"python", "fastapi", "javascript", "react", "database", "sql", "go"}

// Migrate creates or updates the schema
func Migrate(ctx context.Context, db *gorm.DB) error {
	logger := logging.WithComponent("migrate")

	if err := db.SetupJoinTable(&models.Question{}, "Tags", &models.QuestionTag{}); err != nil {
		return fmt.Errorf("setup join table: %w", err)
	}

	err := db.WithContext(ctx).AutoMigrate(
		&models.User{},
		&models.Tag{},
		&models.Question{},
		&models.QuestionTag{},
		&models.Answer{},
		&models.Vote{},
		&models.Notification{},
		&models.ContentModeration{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, stmt := range constraints {
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("apply constraint: %w", err)
			}
		}
		logger.Info("Schema migrated", zap.Int("constraints", len(constraints)))
		return nil
	})
}

// Seed inserts the default tags if they are missing
func Seed(ctx context.Context, db *gorm.DB) error {
	tags := make([]models.Tag, 0, len(DefaultTags))
	for _, name := range DefaultTags {
		tags = append(tags, models.Tag{Name: name})
	}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(&tags).Error
}
