package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/roach88/rubric/internal/document"
	"github.com/roach88/rubric/internal/rubric"
)

// RubricHandler serves the /rubric routes.
type RubricHandler struct {
	logger  *zap.Logger
	metrics *Metrics
}

// SnapshotRequest is the body of POST /rubric/snapshot.
type SnapshotRequest struct {
	RubricID string `json:"rubricID" binding:"required"`
	ReviewID string `json:"reviewID" binding:"required"`
}

// GetRubric handles GET /rubric?rubricID=<id>.
func (h *RubricHandler) GetRubric(c *gin.Context) {
	id := strings.TrimSpace(c.Query("rubricID"))
	if !document.ValidID(id) {
		RespondError(c, http.StatusBadRequest, CodeInvalidID, fmt.Errorf("rubricID %q: %w", id, rubric.ErrInvalidID))
		return
	}
	r, err := orgStore(c).GetRubric(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	RespondOK(c, r)
}

// GetOrgDefault handles GET /rubric/orgdefault.
func (h *RubricHandler) GetOrgDefault(c *gin.Context) {
	status, err := orgStore(c).GetOrgDefault(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	RespondOK(c, status)
}

// PutRubric handles PUT /rubric. The request is validated the same way the
// editor validates before saving.
func (h *RubricHandler) PutRubric(c *gin.Context) {
	var req rubric.PutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, CodeBadRequest, err)
		return
	}
	if err := checkPutRequest(req); err != nil {
		h.metrics.observeSave(string(req.Mode), err)
		h.fail(c, err)
		return
	}

	resp, err := orgStore(c).PutRubric(c.Request.Context(), req)
	h.metrics.observeSave(string(req.Mode), err)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.logger.Info("rubric saved",
		zap.String("rubric_id", resp.RubricID),
		zap.String("mode", string(req.Mode)))
	RespondOK(c, resp)
}

// ListRubrics handles GET /rubrics.
func (h *RubricHandler) ListRubrics(c *gin.Context) {
	list, err := orgStore(c).ListRubrics(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	RespondOK(c, list)
}

// Snapshot handles POST /rubric/snapshot.
func (h *RubricHandler) Snapshot(c *gin.Context) {
	var req SnapshotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, CodeBadRequest, err)
		return
	}
	if !document.ValidID(req.RubricID) {
		RespondError(c, http.StatusBadRequest, CodeInvalidID, fmt.Errorf("rubricID %q: %w", req.RubricID, rubric.ErrInvalidID))
		return
	}
	snap, err := orgStore(c).Snapshot(c.Request.Context(), req.RubricID, req.ReviewID)
	if err != nil {
		h.fail(c, err)
		return
	}
	RespondOK(c, snap)
}

// fail classifies err and writes the envelope. Server errors are logged.
func (h *RubricHandler) fail(c *gin.Context, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
	}
	RespondError(c, status, code, err)
}

// checkPutRequest runs document validation over a save request.
func checkPutRequest(req rubric.PutRequest) error {
	switch req.Mode {
	case rubric.ModeCreate:
	case rubric.ModeEdit:
		if !document.ValidID(req.RubricID) {
			return fmt.Errorf("rubricID %q: %w", req.RubricID, rubric.ErrInvalidID)
		}
	default:
		return fmt.Errorf("%w: unknown mode %q", rubric.ErrMalformed, req.Mode)
	}

	doc, err := document.FromRubric(rubric.Rubric{
		RubricTitle:  req.RubricTitle,
		IsOrgDefault: req.OrgDefault != nil && *req.OrgDefault,
		Headings:     req.Headings,
		TextBlocks:   req.TextBlocks,
		Prompts:      req.Prompts,
	}, "")
	if err != nil {
		return err
	}
	if errs := doc.Validate(); len(errs) > 0 {
		return errs
	}
	return nil
}
