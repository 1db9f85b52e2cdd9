package domain

import (
	"context"

	"github.com/smallbiznis/printflow/pkg/errs"
)

//go:generate mockgen -source=service.go -destination=../mocks/mock_service.go -package=mocks

type UploadProofRequest struct {
	FileRef     string `json:"file_ref" binding:"required,max=1024"`
	FileName    string `json:"file_name" binding:"omitempty,max=255"`
	ContentType string `json:"content_type" binding:"omitempty,max=128"`
	FileSize    int64  `json:"file_size" binding:"gte=0"`
	StaffID     string `json:"staff_id" binding:"omitempty,max=64"`
	Note        string `json:"note" binding:"omitempty,max=2000"`
}

type RespondProofRequest struct {
	Decision Decision `json:"decision" binding:"required,oneof=APPROVE REQUEST_REVISION"`
	Comment  string   `json:"comment" binding:"omitempty,max=2000"`
}

type Service interface {
	// Upload sends the next proof version and moves the order to WAITING_APPROVAL.
	Upload(ctx context.Context, orderID string, req UploadProofRequest) (ProofVersion, error)
	// MarkViewed is best effort: a proof already viewed is returned unchanged.
	MarkViewed(ctx context.Context, id string) (ProofVersion, error)
	Respond(ctx context.Context, id string, req RespondProofRequest) (ProofVersion, error)
	Get(ctx context.Context, id string) (ProofVersion, error)
	List(ctx context.Context, orderID string) ([]ProofVersion, error)
}

var (
	ErrProofNotFound     = errs.New(errs.KindNotFound, "proof_not_found", "proof not found")
	ErrInvalidID         = errs.Validation("id", "invalid_id", "invalid id")
	ErrInvalidFileRef    = errs.Validation("file_ref", "invalid_file_ref", "file reference is required")
	ErrInvalidFileSize   = errs.Validation("file_size", "invalid_file_size", "file size must not be negative")
	ErrInvalidDecision   = errs.Validation("decision", "invalid_decision", "decision must be APPROVE or REQUEST_REVISION")
	ErrProofPending      = errs.New(errs.KindInvalidState, "proof_pending", "a proof is still waiting on the customer")
	ErrProofClosed       = errs.New(errs.KindInvalidState, "proof_closed", "proof was already answered")
	ErrOrderClosed       = errs.New(errs.KindInvalidState, "order_closed", "order is completed or cancelled")
	ErrOrderInProduction = errs.New(errs.KindInvalidState, "order_in_production", "order proofs were already approved")
)
