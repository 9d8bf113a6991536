package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AYM1104/story-book-app-backend-2/internal/services"
)

type StoryPlotHandler struct {
	plotService services.StoryPlotService
}

func NewStoryPlotHandler(plotService services.StoryPlotService) *StoryPlotHandler {
	return &StoryPlotHandler{plotService: plotService}
}

type proposeThemesRequest struct {
	StorySettingID int64 `json:"story_setting_id" binding:"required"`
}

// ProposeThemes generates three candidate themes for a story setting.
func (ph *StoryPlotHandler) ProposeThemes(c *gin.Context) {
	var req proposeThemesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err)
		return
	}
	proposal, err := ph.plotService.ProposeThemes(c.Request.Context(), req.StorySettingID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondCreated(c, gin.H{
		"story_plot_id": proposal.Plot.ID,
		"theme_options": proposal.ThemeOptions,
		"fallback":      proposal.Fallback,
	})
}

type selectThemeRequest struct {
	StorySettingID int64  `json:"story_setting_id" binding:"required"`
	ThemeKey       string `json:"theme_key" binding:"required"`
}

// SelectTheme picks one of the proposed themes and generates its five pages.
func (ph *StoryPlotHandler) SelectTheme(c *gin.Context) {
	var req selectThemeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err)
		return
	}
	selected, err := ph.plotService.SelectTheme(c.Request.Context(), req.StorySettingID, req.ThemeKey)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{
		"story_plot": selected.Plot,
		"story":      selected.Story,
		"fallback":   selected.Fallback,
	})
}

func (ph *StoryPlotHandler) GetPlot(c *gin.Context) {
	plotID, err := pathID(c, "plot_id")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err)
		return
	}
	plot, err := ph.plotService.GetPlot(c.Request.Context(), plotID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"story_plot": plot})
}

func (ph *StoryPlotHandler) ListUserPlots(c *gin.Context) {
	userID, err := pathID(c, "user_id")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err)
		return
	}
	plots, err := ph.plotService.ListUserPlots(c.Request.Context(), userID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"story_plots": plots})
}
