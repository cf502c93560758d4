package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "giveaway-bot/internal/common/errors"
	"giveaway-bot/internal/features/giveaway/models"
	"giveaway-bot/internal/features/giveaway/service"
)

type GiveawayService interface {
	ListActive(ctx context.Context) ([]*models.Giveaway, error)
	ListArchived(ctx context.Context) ([]*models.Giveaway, error)
	GetActive(ctx context.Context, id string) (*models.Giveaway, error)
	GetArchived(ctx context.Context, id string) (*models.Giveaway, error)
	End(ctx context.Context, id string) (*models.Giveaway, error)
	Reroll(ctx context.Context, in service.RerollInput) (*service.RerollResult, error)
}

type Sweeper interface {
	ProcessExpiredGiveaways(ctx context.Context) (int, error)
}

type DisqualificationLister interface {
	List(ctx context.Context) ([]*models.Disqualification, error)
}

type GiveawayHandler struct {
	service GiveawayService
	sweeper Sweeper
	dq      DisqualificationLister
}

func NewGiveawayHandler(svc GiveawayService, sweeper Sweeper, dq DisqualificationLister) *GiveawayHandler {
	return &GiveawayHandler{service: svc, sweeper: sweeper, dq: dq}
}

func (h *GiveawayHandler) RegisterRoutes(router *gin.RouterGroup) {
	giveaways := router.Group("/giveaways")
	{
		giveaways.GET("", h.listActive)
		giveaways.GET("/archive", h.listArchived)
		giveaways.GET("/archive/:id", h.getArchived)
		giveaways.GET("/:id", h.getActive)
		giveaways.POST("/:id/end", h.end)
		giveaways.POST("/:id/reroll", h.reroll)
	}

	router.POST("/sweep", h.sweep)
	router.GET("/disqualifications", h.listDisqualifications)
}

func (h *GiveawayHandler) listActive(c *gin.Context) {
	list, err := h.service.ListActive(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"giveaways": nonNil(list), "total": len(list)})
}

func (h *GiveawayHandler) listArchived(c *gin.Context) {
	list, err := h.service.ListArchived(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"giveaways": nonNil(list), "total": len(list)})
}

func (h *GiveawayHandler) getActive(c *gin.Context) {
	g, err := h.service.GetActive(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, g)
}

func (h *GiveawayHandler) getArchived(c *gin.Context) {
	g, err := h.service.GetArchived(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, g)
}

// end answers 202: the completion runs in the background.
func (h *GiveawayHandler) end(c *gin.Context) {
	g, err := h.service.End(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"id": g.ID, "ending": g.Ending})
}

type rerollRequest struct {
	Winners   int    `json:"winners"`
	ChannelID string `json:"channel_id"`
}

func (h *GiveawayHandler) reroll(c *gin.Context) {
	var req rerollRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			_ = c.Error(apperrors.NewValidationError("body", "Invalid request body: "+err.Error()))
			return
		}
	}
	if req.Winners < 0 {
		_ = c.Error(apperrors.Wrap(models.ErrInvalidWinnersCount, apperrors.ErrCodeInvalidWinners, "Winner amount must be a positive integer"))
		return
	}

	in := service.RerollInput{ID: c.Param("id"), ChannelID: req.ChannelID}
	if req.Winners > 0 {
		in.Count = strconv.Itoa(req.Winners)
	}
	res, err := h.service.Reroll(c.Request.Context(), in)
	if err != nil {
		_ = c.Error(err)
		return
	}

	resp := gin.H{"id": res.Giveaway.ID, "winners": nonNil(res.WinnerIDs)}
	if res.Message != nil {
		resp["message_id"] = res.Message.ID
	}
	c.JSON(http.StatusOK, resp)
}

func (h *GiveawayHandler) sweep(c *gin.Context) {
	launched, err := h.sweeper.ProcessExpiredGiveaways(c.Request.Context())
	if err != nil {
		_ = c.Error(apperrors.NewDatabaseError("sweep", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"launched": launched})
}

func (h *GiveawayHandler) listDisqualifications(c *gin.Context) {
	list, err := h.dq.List(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"disqualifications": nonNil(list), "total": len(list)})
}

// nonNil keeps empty lists as [] in JSON.
func nonNil[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}
