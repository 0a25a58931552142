package controller

import (
	"ctfplatform/internal/auth"
	"ctfplatform/internal/realtime"
	"ctfplatform/internal/team/model"
	"ctfplatform/internal/team/service"
	"ctfplatform/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// TeamController handles team HTTP endpoints.
type TeamController struct {
	teamService *service.TeamService
}

func NewTeamController(teamService *service.TeamService) *TeamController {
	return &TeamController{teamService: teamService}
}

// List handles GET /teams. Supervisors get every team with emails; everyone
// else gets qualified teams only.
func (h *TeamController) List(c *gin.Context) {
	ctx := c.Request.Context()
	if auth.ScopeFromContext(c) == realtime.AudienceSupervisors {
		teams, err := h.teamService.List(ctx)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Success(c, model.FullList(teams))
		return
	}

	teams, err := h.teamService.ListQualified(ctx)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, model.PublicList(teams))
}
