package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stocktide/stocktide/internal/shared"
)

// ActivityPort abstracts the activity log.
type ActivityPort interface {
	Record(ctx context.Context, log shared.ActivityLog) error
}

// Service coordinates inventory operations.
type Service struct {
	repo     Repository
	activity ActivityPort
	allowNeg bool
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	AllowNegativeStock bool
}

// NewService builds Service.
func NewService(repo Repository, activity ActivityPort, cfg ServiceConfig) *Service {
	return &Service{repo: repo, activity: activity, allowNeg: cfg.AllowNegativeStock}
}

// CreateItem registers a new inventory item.
func (s *Service) CreateItem(ctx context.Context, tc shared.TenantContext, req CreateItemRequest) (*Item, error) {
	if req.FolderID != nil {
		if _, err := s.repo.GetFolder(ctx, tc.TenantID, *req.FolderID); err != nil {
			return nil, fmt.Errorf("verify folder: %w", err)
		}
	}
	item := Item{
		ID:          uuid.New(),
		TenantID:    tc.TenantID,
		FolderID:    req.FolderID,
		Name:        req.Name,
		SKU:         req.SKU,
		Quantity:    req.Quantity,
		MinQuantity: req.MinQuantity,
		Price:       req.Price,
		CostPrice:   req.CostPrice,
		Unit:        req.Unit,
		Tags:        req.Tags,
		Notes:       req.Notes,
		CreatedBy:   tc.ActorID,
		CreatedAt:   time.Now(),
	}
	item.Status = item.DerivedStatus()
	if err := s.repo.CreateItem(ctx, item); err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}
	s.logActivity(ctx, tc, "create", "item", item.ID, item.Name, nil)
	return s.repo.GetItem(ctx, tc.TenantID, item.ID)
}

// UpdateItem applies a partial update to the item's descriptive fields.
func (s *Service) UpdateItem(ctx context.Context, tc shared.TenantContext, id uuid.UUID, req UpdateItemRequest) (*Item, error) {
	item, err := s.repo.GetItem(ctx, tc.TenantID, id)
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if req.Name != nil {
		item.Name = *req.Name
	}
	if req.SKU != nil {
		item.SKU = req.SKU
	}
	if req.MinQuantity != nil {
		item.MinQuantity = *req.MinQuantity
	}
	if req.Price != nil {
		item.Price = *req.Price
	}
	if req.CostPrice != nil {
		item.CostPrice = req.CostPrice
	}
	if req.Unit != nil {
		item.Unit = *req.Unit
	}
	if req.Notes != nil {
		item.Notes = req.Notes
	}
	item.Status = item.DerivedStatus()
	if err := s.repo.UpdateItem(ctx, *item); err != nil {
		return nil, fmt.Errorf("update item: %w", err)
	}
	s.logActivity(ctx, tc, "update", "item", item.ID, item.Name, nil)
	return s.repo.GetItem(ctx, tc.TenantID, id)
}

// AdjustQuantity changes stocked quantity by a signed delta. Negative stock
// is rejected unless explicitly allowed by configuration.
func (s *Service) AdjustQuantity(ctx context.Context, tc shared.TenantContext, id uuid.UUID, req AdjustQuantityRequest) (*Item, error) {
	var updated *Item
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		item, err := repo.GetItem(ctx, tc.TenantID, id)
		if err != nil {
			return fmt.Errorf("get item: %w", err)
		}
		newQty := item.Quantity + req.Delta
		if newQty < 0 && !s.allowNeg {
			return ErrNegativeStock
		}
		before := item.Quantity
		item.Quantity = newQty
		item.Status = item.DerivedStatus()
		if err := repo.UpdateItem(ctx, *item); err != nil {
			return fmt.Errorf("update item: %w", err)
		}
		s.logActivity(ctx, tc, "adjust_quantity", "item", item.ID, item.Name, map[string]any{
			"from": before, "to": newQty, "reason": req.Reason,
		})
		updated = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// SetTags replaces the tag list.
func (s *Service) SetTags(ctx context.Context, tc shared.TenantContext, id uuid.UUID, req SetTagsRequest) (*Item, error) {
	item, err := s.repo.GetItem(ctx, tc.TenantID, id)
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	item.Tags = req.Tags
	if err := s.repo.UpdateItem(ctx, *item); err != nil {
		return nil, fmt.Errorf("update item: %w", err)
	}
	return s.repo.GetItem(ctx, tc.TenantID, id)
}

// MoveItem relocates an item into a folder, or to the root when nil.
func (s *Service) MoveItem(ctx context.Context, tc shared.TenantContext, id uuid.UUID, req MoveItemRequest) (*Item, error) {
	item, err := s.repo.GetItem(ctx, tc.TenantID, id)
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if req.FolderID != nil {
		if _, err := s.repo.GetFolder(ctx, tc.TenantID, *req.FolderID); err != nil {
			return nil, fmt.Errorf("verify folder: %w", err)
		}
	}
	item.FolderID = req.FolderID
	if err := s.repo.UpdateItem(ctx, *item); err != nil {
		return nil, fmt.Errorf("move item: %w", err)
	}
	s.logActivity(ctx, tc, "move", "item", item.ID, item.Name, nil)
	return s.repo.GetItem(ctx, tc.TenantID, id)
}

// DuplicateItem copies an item with zero quantity and a new id.
func (s *Service) DuplicateItem(ctx context.Context, tc shared.TenantContext, id uuid.UUID) (*Item, error) {
	src, err := s.repo.GetItem(ctx, tc.TenantID, id)
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	dup := *src
	dup.ID = uuid.New()
	dup.Name = src.Name + " (copy)"
	dup.Quantity = 0
	dup.Status = dup.DerivedStatus()
	dup.CreatedBy = tc.ActorID
	dup.CreatedAt = time.Now()
	if err := s.repo.CreateItem(ctx, dup); err != nil {
		return nil, fmt.Errorf("duplicate item: %w", err)
	}
	return s.repo.GetItem(ctx, tc.TenantID, dup.ID)
}

// DeleteItem removes an item.
func (s *Service) DeleteItem(ctx context.Context, tc shared.TenantContext, id uuid.UUID) error {
	item, err := s.repo.GetItem(ctx, tc.TenantID, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteItem(ctx, tc.TenantID, id); err != nil {
		return err
	}
	s.logActivity(ctx, tc, "delete", "item", item.ID, item.Name, nil)
	return nil
}

// GetItem loads one item.
func (s *Service) GetItem(ctx context.Context, tc shared.TenantContext, id uuid.UUID) (*Item, error) {
	return s.repo.GetItem(ctx, tc.TenantID, id)
}

// ListItems returns a filtered page.
func (s *Service) ListItems(ctx context.Context, tc shared.TenantContext, req ListItemsRequest) ([]Item, int, error) {
	return s.repo.ListItems(ctx, tc.TenantID, req)
}

// CreateFolder adds a folder under parent (nil for root).
func (s *Service) CreateFolder(ctx context.Context, tc shared.TenantContext, req CreateFolderRequest) (*Folder, error) {
	if req.ParentID != nil {
		if _, err := s.repo.GetFolder(ctx, tc.TenantID, *req.ParentID); err != nil {
			return nil, fmt.Errorf("verify parent: %w", err)
		}
	}
	folder := Folder{
		ID:        uuid.New(),
		TenantID:  tc.TenantID,
		ParentID:  req.ParentID,
		Name:      req.Name,
		Color:     req.Color,
		CreatedBy: tc.ActorID,
		CreatedAt: time.Now(),
	}
	if err := s.repo.CreateFolder(ctx, folder); err != nil {
		return nil, fmt.Errorf("create folder: %w", err)
	}
	return s.repo.GetFolder(ctx, tc.TenantID, folder.ID)
}

// UpdateFolder renames, recolours, or moves a folder. Moving under one of
// its own descendants is rejected.
func (s *Service) UpdateFolder(ctx context.Context, tc shared.TenantContext, id uuid.UUID, req UpdateFolderRequest) (*Folder, error) {
	folder, err := s.repo.GetFolder(ctx, tc.TenantID, id)
	if err != nil {
		return nil, fmt.Errorf("get folder: %w", err)
	}
	if req.Name != nil {
		folder.Name = *req.Name
	}
	if req.Color != nil {
		folder.Color = req.Color
	}
	if req.ParentID != nil {
		if err := s.checkNoCycle(ctx, tc.TenantID, id, *req.ParentID); err != nil {
			return nil, err
		}
		folder.ParentID = req.ParentID
	}
	if err := s.repo.UpdateFolder(ctx, *folder); err != nil {
		return nil, fmt.Errorf("update folder: %w", err)
	}
	return s.repo.GetFolder(ctx, tc.TenantID, id)
}

// DeleteFolder removes a folder after reparenting its children and items to
// the folder's own parent.
func (s *Service) DeleteFolder(ctx context.Context, tc shared.TenantContext, id uuid.UUID) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		folder, err := repo.GetFolder(ctx, tc.TenantID, id)
		if err != nil {
			return err
		}
		if err := repo.ReparentChildren(ctx, tc.TenantID, id, folder.ParentID); err != nil {
			return fmt.Errorf("reparent children: %w", err)
		}
		if err := repo.DeleteFolder(ctx, tc.TenantID, id); err != nil {
			return err
		}
		s.logActivity(ctx, tc, "delete", "folder", folder.ID, folder.Name, nil)
		return nil
	})
}

// ListFolders returns all folders of the tenant.
func (s *Service) ListFolders(ctx context.Context, tc shared.TenantContext) ([]Folder, error) {
	return s.repo.ListFolders(ctx, tc.TenantID)
}

func (s *Service) checkNoCycle(ctx context.Context, tenantID, folderID, newParent uuid.UUID) error {
	if folderID == newParent {
		return ErrFolderCycle
	}
	cursor := newParent
	for cursor != uuid.Nil {
		parent, err := s.repo.GetFolder(ctx, tenantID, cursor)
		if err != nil {
			return fmt.Errorf("walk ancestors: %w", err)
		}
		if parent.ParentID == nil {
			return nil
		}
		if *parent.ParentID == folderID {
			return ErrFolderCycle
		}
		cursor = *parent.ParentID
	}
	return nil
}

func (s *Service) logActivity(ctx context.Context, tc shared.TenantContext, action, entity string, id uuid.UUID, name string, changes map[string]any) {
	if s.activity == nil {
		return
	}
	_ = s.activity.Record(ctx, shared.ActivityLog{
		TenantID:   tc.TenantID,
		ActorID:    tc.ActorID,
		ActorName:  tc.ActorName,
		ActionType: action,
		EntityType: entity,
		EntityID:   id,
		EntityName: name,
		Changes:    changes,
		At:         time.Now(),
	})
}
