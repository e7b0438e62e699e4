package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tieubaoca/docrag-be/service"
	"github.com/tieubaoca/docrag-be/types"
)

type StatsHandler struct {
	fileService *service.FileService
}

func NewStatsHandler(fileService *service.FileService) *StatsHandler {
	return &StatsHandler{
		fileService: fileService,
	}
}

func (h *StatsHandler) HandleStats(c *gin.Context) {
	stats, failures := h.fileService.Stats()
	c.JSON(http.StatusOK, types.DataResponse{
		Status: "success",
		Data: types.StatsResponse{
			Stats:    stats,
			Failures: failures,
		},
	})
}

func (h *StatsHandler) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, types.DataResponse{
		Status: "success",
	})
}
