package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"finsight-backend/internal/dto"
	"finsight-backend/internal/model"
	"finsight-backend/internal/service"
	"finsight-backend/internal/store"
)

const healthMessage = "Financial insight backend is running."

type ChatController struct {
	chatService service.ChatService
	turns       store.TurnStore
}

func NewChatController(chatService service.ChatService, turns store.TurnStore) *ChatController {
	return &ChatController{
		chatService: chatService,
		turns:       turns,
	}
}

func RegisterChatRoutes(router *gin.Engine, controller *ChatController) {
	router.POST("/chat", controller.HandleChat)
	api := router.Group("/api")
	{
		api.GET("/health", controller.HandleHealth)
		api.GET("/turns/:id", controller.HandleGetTurn)
	}
}

// HandleChat answers one chat turn. Every well-formed request gets 200, with
// failures described in the response's text_answer and error fields.
func (c *ChatController) HandleChat(ctx *gin.Context) {
	var req dto.ChatRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		log.Warn().Err(err).Msg("Invalid chat request body")
		ctx.JSON(http.StatusBadRequest, model.NewResponse("Invalid request body: "+err.Error(), nil))
		return
	}

	resp := c.chatService.HandleTurn(ctx.Request.Context(), req)
	ctx.JSON(http.StatusOK, resp)
}

func (c *ChatController) HandleHealth(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, dto.HealthResponse{Status: "ok", Message: healthMessage})
}

// HandleGetTurn returns the diagnostic record of a recent turn.
func (c *ChatController) HandleGetTurn(ctx *gin.Context) {
	turn, err := c.turns.Get(ctx.Request.Context(), ctx.Param("id"))
	if errors.Is(err, store.ErrTurnNotFound) {
		ctx.JSON(http.StatusNotFound, model.NewResponse("Turn not found", nil))
		return
	}
	if err != nil {
		log.Error().Err(err).Str("turn_id", ctx.Param("id")).Msg("Failed to load turn")
		ctx.JSON(http.StatusInternalServerError, model.NewResponse("Internal server error", nil))
		return
	}
	ctx.JSON(http.StatusOK, model.NewResponse("ok", turn))
}
