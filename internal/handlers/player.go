package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/xivitoo/XiPadelGranada/internal/services"

	"github.com/gin-gonic/gin"
)

type PlayerHandler struct {
	playerService *services.PlayerService
}

func NewPlayerHandler(playerService *services.PlayerService) *PlayerHandler {
	return &PlayerHandler{playerService: playerService}
}

func (h *PlayerHandler) ListPlayers(c *gin.Context) {
	players, err := h.playerService.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, players)
}

func (h *PlayerHandler) GetPlayer(c *gin.Context) {
	telegramID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid player id"})
		return
	}

	player, err := h.playerService.Get(telegramID)
	if err != nil {
		if errors.Is(err, services.ErrPlayerNotRegistered) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, player)
}

func (h *PlayerHandler) GetPlayerEvaluations(c *gin.Context) {
	telegramID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid player id"})
		return
	}

	evals, err := h.playerService.Evaluations(telegramID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, evals)
}
