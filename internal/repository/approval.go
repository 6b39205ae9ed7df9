package repository

import (
	"context"

	"warden/internal/models"
	"warden/internal/observability"

	"gorm.io/gorm"
)

// ApprovalRepository defines persistence operations for role-elevation requests.
type ApprovalRepository interface {
	List(ctx context.Context) ([]models.ApprovalRequest, error)
	GetByID(ctx context.Context, id string) (*models.ApprovalRequest, error)
	Create(ctx context.Context, req *models.ApprovalRequest) error
	Update(ctx context.Context, req *models.ApprovalRequest) error
}

type approvalRepository struct {
	db *gorm.DB
}

// NewApprovalRepository returns a new ApprovalRepository implementation.
func NewApprovalRepository(db *gorm.DB) ApprovalRepository {
	return &approvalRepository{db: db}
}

// List returns every request with its requester, newest first.
func (r *approvalRepository) List(ctx context.Context) ([]models.ApprovalRequest, error) {
	defer observability.TrackQuery("list", "approval_requests")()
	var out []models.ApprovalRequest
	if err := r.db.WithContext(ctx).Preload("User").Order("requested_at DESC").Find(&out).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return out, nil
}

func (r *approvalRepository) GetByID(ctx context.Context, id string) (*models.ApprovalRequest, error) {
	var req models.ApprovalRequest
	if err := r.db.WithContext(ctx).Preload("User").First(&req, "id = ?", id).Error; err != nil {
		return nil, readError("Approval request", id, err)
	}
	return &req, nil
}

func (r *approvalRepository) Create(ctx context.Context, req *models.ApprovalRequest) error {
	defer observability.TrackQuery("create", "approval_requests")()
	if err := r.db.WithContext(ctx).Omit("User").Create(req).Error; err != nil {
		return models.NewStoreWriteError("create approval request", err)
	}
	return nil
}

func (r *approvalRepository) Update(ctx context.Context, req *models.ApprovalRequest) error {
	defer observability.TrackQuery("update", "approval_requests")()
	res := r.db.WithContext(ctx).Model(&models.ApprovalRequest{}).Where("id = ?", req.ID).Updates(map[string]any{
		"status":      req.Status,
		"reviewed_at": req.ReviewedAt,
		"reviewed_by": req.ReviewedBy,
		"notes":       req.Notes,
	})
	if res.Error != nil {
		return models.NewStoreWriteError("update approval request", res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Approval request", req.ID)
	}
	return nil
}
