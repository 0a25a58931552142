package controller

import (
	"strconv"

	"ctfplatform/internal/auth"
	"ctfplatform/internal/submission/service"
	pkgerrors "ctfplatform/pkg/errors"
	"ctfplatform/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// SubmitRequest is the body of POST /tasks/:id/submit.
type SubmitRequest struct {
	Answer string `json:"answer" binding:"required"`
}

// SubmitResponse reports the verdict.
type SubmitResponse struct {
	Correct bool `json:"correct"`
}

type SubmissionController struct {
	submissionService *service.SubmissionService
}

func NewSubmissionController(submissionService *service.SubmissionService) *SubmissionController {
	return &SubmissionController{submissionService: submissionService}
}

// Submit handles POST /tasks/:id/submit for teams.
func (h *SubmissionController) Submit(c *gin.Context) {
	identity, ok := auth.IdentityFromContext(c)
	if !ok || identity.Role != auth.RoleTeam {
		response.Error(c, pkgerrors.New(pkgerrors.Forbidden))
		return
	}
	taskID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || taskID <= 0 {
		response.BadRequest(c, "Invalid task id")
		return
	}
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}

	correct, err := h.submissionService.Submit(c.Request.Context(), identity.ID, taskID, req.Answer)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, SubmitResponse{Correct: correct})
}
