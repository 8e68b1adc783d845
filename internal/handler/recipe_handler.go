package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/hitoshi/recipebook/internal/model"
	"github.com/hitoshi/recipebook/internal/recipe"
)

// RecipeServiceInterface はレシピハンドラーが必要とするサービスインターフェース。
type RecipeServiceInterface interface {
	Create(ctx context.Context, ownerID int64, in recipe.CreateInput) (*model.Recipe, error)
	List(ctx context.Context, ownerID int64) ([]model.Recipe, error)
}

// RecipeHandler はレシピ関連のHTTPハンドラー。
type RecipeHandler struct {
	service RecipeServiceInterface
}

// NewRecipeHandler はRecipeHandlerを生成する。
func NewRecipeHandler(service RecipeServiceInterface) *RecipeHandler {
	return &RecipeHandler{service: service}
}

type createRecipeRequest struct {
	Title             string `json:"title"`
	Instructions      string `json:"instructions"`
	MinutesToComplete *int   `json:"minutes_to_complete"`
}

// ListRecipes はログインユーザーが所有するレシピを作成順に返す。
// GET /recipes
func (h *RecipeHandler) ListRecipes(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r, model.MsgViewRecipesLogin)
	if !ok {
		return
	}

	recipes, err := h.service.List(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, err, nil)
		return
	}

	resp := make([]recipeResponse, 0, len(recipes))
	for i := range recipes {
		resp = append(resp, newRecipeResponse(&recipes[i]))
	}

	writeJSON(w, http.StatusOK, resp)
}

// CreateRecipe はログインユーザー所有のレシピを作成する。
// POST /recipes
func (h *RecipeHandler) CreateRecipe(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r, model.MsgCreateRecipeLogin)
	if !ok {
		return
	}

	var req createRecipeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAPIErrorResponse(w, http.StatusUnprocessableEntity, model.NewInvalidBodyError())
		return
	}

	created, err := h.service.Create(r.Context(), userID, recipe.CreateInput{
		Title:             req.Title,
		Instructions:      req.Instructions,
		MinutesToComplete: req.MinutesToComplete,
	})
	if errors.Is(err, model.ErrUnauthenticated) {
		// セッション確認後に所有ユーザーが削除されていた
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewNotLoggedInError(model.MsgCreateRecipeLogin))
		return
	}
	if err != nil {
		handleServiceError(w, r, err, model.NewRecipeCreateFailedError())
		return
	}

	writeJSON(w, http.StatusCreated, newRecipeResponse(created))
}
