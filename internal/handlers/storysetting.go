package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AYM1104/story-book-app-backend-2/internal/services"
)

type StorySettingHandler struct {
	settingService  services.StorySettingService
	questionService services.QuestionService
}

func NewStorySettingHandler(settingService services.StorySettingService, questionService services.QuestionService) *StorySettingHandler {
	return &StorySettingHandler{
		settingService:  settingService,
		questionService: questionService,
	}
}

// DeriveSetting creates or refreshes the story setting for an uploaded image
// from its vision metadata.
func (sh *StorySettingHandler) DeriveSetting(c *gin.Context) {
	uploadImageID, err := pathID(c, "upload_image_id")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err)
		return
	}
	setting, err := sh.settingService.DeriveForImage(c.Request.Context(), uploadImageID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondCreated(c, gin.H{"story_setting": setting})
}

func (sh *StorySettingHandler) GetSetting(c *gin.Context) {
	settingID, err := pathID(c, "setting_id")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err)
		return
	}
	setting, err := sh.settingService.GetSetting(c.Request.Context(), settingID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"story_setting": setting})
}

func (sh *StorySettingHandler) GetQuestions(c *gin.Context) {
	settingID, err := pathID(c, "setting_id")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err)
		return
	}
	questions, err := sh.questionService.GetQuestions(c.Request.Context(), settingID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"questions": questions})
}

type submitAnswerRequest struct {
	Field  string `json:"field" binding:"required"`
	Answer string `json:"answer" binding:"required"`
}

func (sh *StorySettingHandler) SubmitAnswer(c *gin.Context) {
	settingID, err := pathID(c, "setting_id")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err)
		return
	}
	var req submitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err)
		return
	}
	setting, err := sh.questionService.SubmitAnswer(c.Request.Context(), settingID, req.Field, req.Answer)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"story_setting": setting})
}

func (sh *StorySettingHandler) GetCompletionStatus(c *gin.Context) {
	settingID, err := pathID(c, "setting_id")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err)
		return
	}
	status, err := sh.questionService.GetCompletionStatus(c.Request.Context(), settingID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"completion_status": status})
}

func (sh *StorySettingHandler) GetQuestionHistory(c *gin.Context) {
	settingID, err := pathID(c, "setting_id")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err)
		return
	}
	history, err := sh.questionService.GetQuestionHistory(c.Request.Context(), settingID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"history": history})
}
