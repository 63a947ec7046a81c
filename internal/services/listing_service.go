package services

import (
	"context"
	"errors"
	"time"

	"mermanager/internal/domain"
	"mermanager/internal/store"
)

var (
	ErrNotOwner     = errors.New("listing belongs to another user")
	ErrMissingTitle = errors.New("title is required")
	ErrBadAmount    = errors.New("price and cost must be non-negative")
	ErrBadStatus    = errors.New("unknown listing status")
)

// Draft is the editor's mutable in-progress form: all fields defaulted,
// discarded wholesale on close/cancel. It never carries id, owner or
// timestamps; those belong to the store layer.
type Draft struct {
	Title       string
	Description string
	Price       int64
	Cost        int64
	Status      domain.Status
	Category    string
	ImageURL    string
}

// NewDraft returns the open-create defaults.
func NewDraft() Draft {
	return Draft{Status: domain.StatusActive, Category: domain.Categories[0]}
}

// DraftOf pre-populates a draft from an existing listing for open-edit.
func DraftOf(l domain.Listing) Draft {
	return Draft{
		Title:       l.Title,
		Description: l.Description,
		Price:       l.Price,
		Cost:        l.Cost,
		Status:      l.Status,
		Category:    l.Category,
		ImageURL:    l.ImageURL,
	}
}

func (d Draft) validate() error {
	if d.Title == "" {
		return ErrMissingTitle
	}
	if d.Price < 0 || d.Cost < 0 {
		return ErrBadAmount
	}
	if !d.Status.Valid() {
		return ErrBadStatus
	}
	return nil
}

// ListingService issues mutations through the store adapter, owning the
// timestamp and ownership rules: createdAt/ownerID set once at creation,
// updatedAt refreshed on every write.
type ListingService struct {
	Store store.Store
	Now   func() int64 // unix ms, overridable in tests
}

func NewListingService(st store.Store) *ListingService {
	return &ListingService{Store: st, Now: func() int64 { return time.Now().UnixMilli() }}
}

func (s *ListingService) Create(ctx context.Context, ownerID string, d Draft) (string, error) {
	if err := d.validate(); err != nil {
		return "", err
	}
	now := s.Now()
	return s.Store.Create(ctx, domain.Listing{
		OwnerID:     ownerID,
		Title:       d.Title,
		Description: d.Description,
		Price:       d.Price,
		Cost:        d.Cost,
		Status:      d.Status,
		Category:    d.Category,
		ImageURL:    d.ImageURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (s *ListingService) Update(ctx context.Context, ownerID, id string, d Draft) error {
	if err := d.validate(); err != nil {
		return err
	}
	cur, err := s.Store.Get(ctx, id)
	if err != nil {
		return err
	}
	if cur.OwnerID != ownerID {
		return ErrNotOwner
	}
	return s.Store.Update(ctx, id, map[string]any{
		"title":       d.Title,
		"description": d.Description,
		"price":       d.Price,
		"cost":        d.Cost,
		"status":      d.Status,
		"category":    d.Category,
		"image_url":   d.ImageURL,
		"updated_at":  s.Now(),
	})
}

func (s *ListingService) Delete(ctx context.Context, ownerID, id string) error {
	cur, err := s.Store.Get(ctx, id)
	if err != nil {
		return err
	}
	if cur.OwnerID != ownerID {
		return ErrNotOwner
	}
	return s.Store.Delete(ctx, id)
}

// Get fetches one listing, enforcing ownership.
func (s *ListingService) Get(ctx context.Context, ownerID, id string) (domain.Listing, error) {
	l, err := s.Store.Get(ctx, id)
	if err != nil {
		return domain.Listing{}, err
	}
	if l.OwnerID != ownerID {
		return domain.Listing{}, ErrNotOwner
	}
	return l, nil
}
