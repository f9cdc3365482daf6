package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/maestro_backend/models"
)

func (h *Handler) listCampaigns() gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := h.store.ListCampaigns(c.Request.Context())
		if err != nil {
			h.writeError(c, "listCampaigns", nil, err)
			return
		}
		c.JSON(http.StatusOK, rows)
	}
}

func (h *Handler) activeCampaigns() gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := h.store.ActiveCampaigns(c.Request.Context())
		if err != nil {
			h.writeError(c, "activeCampaigns", nil, err)
			return
		}
		c.JSON(http.StatusOK, rows)
	}
}

func (h *Handler) createCampaign() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewCampaign
		if !bindJSON(c, &input) {
			return
		}
		campaign, err := h.store.CreateCampaign(c.Request.Context(), &input, currentSession(c).Email)
		if err != nil {
			h.writeError(c, "createCampaign", input, err)
			return
		}
		c.JSON(http.StatusCreated, campaign)
	}
}

func (h *Handler) getCampaign() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := campaignParam(c)
		if !ok {
			return
		}
		campaign, err := h.store.GetCampaign(c.Request.Context(), id)
		if err != nil {
			h.writeError(c, "getCampaign", id, err)
			return
		}
		c.JSON(http.StatusOK, campaign)
	}
}

func (h *Handler) updateCampaign() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := campaignParam(c)
		if !ok {
			return
		}
		var input models.NewCampaign
		if !bindJSON(c, &input) {
			return
		}
		campaign, err := h.store.UpdateCampaign(c.Request.Context(), id, &input)
		if err != nil {
			h.writeError(c, "updateCampaign", input, err)
			return
		}
		c.JSON(http.StatusOK, campaign)
	}
}

func (h *Handler) toggleCampaign() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := campaignParam(c)
		if !ok {
			return
		}
		campaign, err := h.store.ToggleCampaign(c.Request.Context(), id)
		if err != nil {
			h.writeError(c, "toggleCampaign", id, err)
			return
		}
		c.JSON(http.StatusOK, campaign)
	}
}
