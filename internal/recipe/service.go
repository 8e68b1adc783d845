// Package recipe はレシピの作成と一覧取得のビジネスロジックを提供する。
package recipe

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/hitoshi/recipebook/internal/metrics"
	"github.com/hitoshi/recipebook/internal/model"
	"github.com/hitoshi/recipebook/internal/repository"
)

// CreateInput はレシピ作成の入力値。
type CreateInput struct {
	Title             string
	Instructions      string
	MinutesToComplete *int
}

// Service はレシピに関するビジネスロジックを提供する。
type Service struct {
	repo    repository.RecipeRepository
	metrics metrics.MetricsCollector
}

// NewService はServiceを生成する。
func NewService(repo repository.RecipeRepository, collector metrics.MetricsCollector) *Service {
	if collector == nil {
		collector = metrics.Nop{}
	}
	return &Service{
		repo:    repo,
		metrics: collector,
	}
}

// Create はownerIDのユーザーが所有するレシピを作成する。
// titleとinstructionsは受け取ったまま検証・保存する。
// 両方が不正な場合は両方のエラーを1つの*model.ValidationErrorにまとめて返す。
func (s *Service) Create(ctx context.Context, ownerID int64, in CreateInput) (*model.Recipe, error) {
	recipe := &model.Recipe{
		Title:             in.Title,
		Instructions:      in.Instructions,
		MinutesToComplete: in.MinutesToComplete,
		UserID:            ownerID,
	}

	if fields := validate(recipe); !fields.Empty() {
		return nil, model.NewValidationError(fields)
	}

	if err := s.repo.Create(ctx, recipe); err != nil {
		return nil, err
	}

	s.metrics.RecordRecipeCreated()
	slog.Info("recipe created",
		slog.Int64("recipe_id", recipe.ID),
		slog.Int64("user_id", ownerID),
	)

	return recipe, nil
}

// List はownerIDのユーザーが所有するレシピを登録順に返す。
func (s *Service) List(ctx context.Context, ownerID int64) ([]model.Recipe, error) {
	recipes, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}
	return recipes, nil
}

// validate はレシピのフィールドを検証する。文字数はバイト数ではなく文字（rune）数で数える。
func validate(r *model.Recipe) model.FieldErrors {
	fields := model.FieldErrors{}
	if strings.TrimSpace(r.Title) == "" {
		fields.Add("title", model.MsgTitleRequired)
	}
	if utf8.RuneCountInString(r.Instructions) < model.RecipeInstructionsMinLength {
		fields.Add("instructions", model.MsgInstructionsTooShort)
	}
	return fields
}
