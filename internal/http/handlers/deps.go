package handlers

import (
	"mermanager/internal/config"
	"mermanager/internal/gemini"
	"mermanager/internal/services"
	"mermanager/internal/store"
)

type Deps struct {
	DashboardHandler *DashboardHandler
	ListingHandler   *ListingHandler
	EditorHandler    *EditorHandler
	StreamHandler    *StreamHandler
}

func NewDeps(st store.Store, cfg config.Config, auth *services.AuthService, rm *services.ReadModel) *Deps {
	listingSvc := services.NewListingService(st)
	optimizer := gemini.New(cfg.GeminiKey, cfg.GeminiModel)
	editors := services.NewEditors(listingSvc, optimizer)

	return &Deps{
		DashboardHandler: &DashboardHandler{Model: rm},
		ListingHandler:   &ListingHandler{Model: rm},
		EditorHandler:    &EditorHandler{Editors: editors, Listings: listingSvc, Auth: auth},
		StreamHandler:    &StreamHandler{Model: rm},
	}
}
