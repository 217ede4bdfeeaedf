package api

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/erazemk/trailpack/internal/actions"
	"github.com/erazemk/trailpack/internal/state"
	"github.com/erazemk/trailpack/internal/websocket"
)

// Config carries the dependencies of the HTTP API.
type Config struct {
	DB        *sql.DB
	JWTSecret string
	Store     *state.Store
	History   *state.History
	Actions   *actions.Actions
	Hub       *websocket.Hub
	Logger    *slog.Logger

	// BaseURL is the public address used in share links. Optional.
	BaseURL string
	// OriginPatterns lists extra hosts allowed to open the websocket.
	OriginPatterns []string
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(cfg Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: cfg.DB, JWTSecret: cfg.JWTSecret}
	stateHandler := &StateHandler{Store: cfg.Store, History: cfg.History, Actions: cfg.Actions, Logger: logger}
	itemsHandler := &ItemsHandler{DB: cfg.DB, Store: cfg.Store, Actions: cfg.Actions, Logger: logger}
	walksHandler := &WalksHandler{DB: cfg.DB, Store: cfg.Store, Actions: cfg.Actions, BaseURL: cfg.BaseURL, Logger: logger}
	recipesHandler := &RecipesHandler{Store: cfg.Store, Actions: cfg.Actions}

	authMW := AuthMiddleware(cfg.JWTSecret, cfg.DB)
	handle := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, authMW(fn))
	}

	// Public: login.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)

	handle("POST /api/auth/logout", authHandler.Logout)

	// Entry point; also receives share links.
	handle("GET /{$}", stateHandler.Root)

	// State and session.
	handle("GET /api/state", stateHandler.Get)
	handle("PUT /api/settings/unit", stateHandler.SetUnit)
	handle("PUT /api/session/active-walk", stateHandler.SetActiveWalk)
	handle("POST /api/undo", stateHandler.Undo)
	handle("POST /api/redo", stateHandler.Redo)
	handle("POST /api/shared/keep", stateHandler.KeepShared)
	handle("POST /api/shared/leave", stateHandler.LeaveShared)

	// Inventory and categories.
	handle("GET /api/items", itemsHandler.List)
	handle("POST /api/items", itemsHandler.Create)
	handle("PATCH /api/items/{id}", itemsHandler.Update)
	handle("DELETE /api/items/{id}", itemsHandler.Delete)
	handle("PUT /api/items/{id}/photo", itemsHandler.UploadPhoto)
	handle("GET /api/inventory/export.csv", itemsHandler.ExportCSV)
	handle("GET /api/categories", itemsHandler.ListCategories)
	handle("POST /api/categories", itemsHandler.CreateCategory)
	handle("PATCH /api/categories/{id}", itemsHandler.UpdateCategory)
	handle("DELETE /api/categories/{id}", itemsHandler.DeleteCategory)
	handle("GET /api/photos/{id}", itemsHandler.GetPhoto)

	// Walks.
	handle("GET /api/walks", walksHandler.List)
	handle("POST /api/walks", walksHandler.Create)
	handle("GET /api/walks/{id}", walksHandler.Get)
	handle("PATCH /api/walks/{id}", walksHandler.Update)
	handle("DELETE /api/walks/{id}", walksHandler.Delete)
	handle("POST /api/walks/{id}/duplicate", walksHandler.Duplicate)
	handle("PUT /api/walks/{id}/photo", walksHandler.UploadPhoto)
	handle("POST /api/walks/{id}/lines/from-item", walksHandler.AddFromItem)
	handle("POST /api/walks/{id}/lines/quick", walksHandler.QuickAdd)
	handle("PATCH /api/walks/{id}/lines/{lineId}", walksHandler.UpdateLine)
	handle("DELETE /api/walks/{id}/lines/{lineId}", walksHandler.DeleteLine)
	handle("GET /api/walks/{id}/share", walksHandler.Share)
	handle("GET /api/walks/{id}/export.csv", walksHandler.ExportCSV)

	// Recipes and wishlist.
	handle("GET /api/recipes", recipesHandler.ListRecipes)
	handle("POST /api/recipes", recipesHandler.CreateRecipe)
	handle("DELETE /api/recipes/{id}", recipesHandler.DeleteRecipe)
	handle("POST /api/recipes/{id}/ingredients", recipesHandler.AddIngredient)
	handle("DELETE /api/recipes/{id}/ingredients/{index}", recipesHandler.RemoveIngredient)
	handle("GET /api/dream-items", recipesHandler.ListDreamItems)
	handle("POST /api/dream-items", recipesHandler.CreateDreamItem)
	handle("PATCH /api/dream-items/{id}", recipesHandler.UpdateDreamItem)
	handle("DELETE /api/dream-items/{id}", recipesHandler.DeleteDreamItem)
	handle("POST /api/dream-items/{id}/purchase", recipesHandler.Purchase)

	// Live change notifications.
	if cfg.Hub != nil {
		handle("GET /ws", websocket.Handler(cfg.Hub, cfg.OriginPatterns, logger))
	}

	return LoggingMiddleware(logger)(mux)
}
