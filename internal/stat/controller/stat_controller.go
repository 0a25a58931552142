package controller

import (
	"ctfplatform/internal/stat/service"
	"ctfplatform/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

type StatController struct {
	statService *service.StatService
}

func NewStatController(statService *service.StatService) *StatController {
	return &StatController{statService: statService}
}

// Get handles GET /stats.
func (h *StatController) Get(c *gin.Context) {
	stats, err := h.statService.GetStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, stats)
}
