package server

import (
	"io"
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	ledgerdomain "github.com/smallbiznis/snapcount/internal/ledger/domain"
	profiledomain "github.com/smallbiznis/snapcount/internal/profile/domain"
	sessiondomain "github.com/smallbiznis/snapcount/internal/session/domain"
)

const contextSessionViewKey = "session_view"

type describeRequest struct {
	Description string `json:"description"`
}

type recalculateRequest struct {
	FoodName string `json:"food_name"`
}

type addToLogResponse struct {
	Entry   ledgerdomain.FoodEntry `json:"entry"`
	Session sessiondomain.Snapshot `json:"session"`
}

func (s *Server) GetSession(c *gin.Context) {
	s.respondSnapshot(c, s.session.Snapshot(c.Request.Context()), nil)
}

func (s *Server) CompleteSetup(c *gin.Context) {
	var req profiledomain.Biometrics
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	snap, err := s.session.CompleteSetup(c.Request.Context(), req)
	s.respondSnapshot(c, snap, err)
}

func (s *Server) EditProfile(c *gin.Context) {
	s.respondSnapshot(c, s.session.EditProfile(c.Request.Context()), nil)
}

func (s *Server) StartLogging(c *gin.Context) {
	snap, err := s.session.StartLogging(c.Request.Context())
	s.respondSnapshot(c, snap, err)
}

func (s *Server) Back(c *gin.Context) {
	s.respondSnapshot(c, s.session.Back(c.Request.Context()), nil)
}

// UploadImage accepts a multipart "image" file. The declared part
// Content-Type is trusted as the MIME type.
func (s *Server) UploadImage(c *gin.Context) {
	header, err := c.FormFile("image")
	if err != nil {
		AbortWithError(c, newValidationError("image", "required", "image is required"))
		return
	}
	mimeType := strings.TrimSpace(header.Header.Get("Content-Type"))
	if err := s.intake.Validate(mimeType, header.Size); err != nil {
		AbortWithError(c, err)
		return
	}

	file, err := header.Open()
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	snap, err := s.session.UploadImage(c.Request.Context(), data, mimeType)
	s.respondSnapshot(c, snap, err)
}

func (s *Server) ClearImage(c *gin.Context) {
	s.respondSnapshot(c, s.session.ClearImage(c.Request.Context()), nil)
}

func (s *Server) Analyze(c *gin.Context) {
	snap, err := s.session.Analyze(c.Request.Context())
	s.respondSnapshot(c, snap, err)
}

func (s *Server) ShowManualInput(c *gin.Context) {
	s.respondSnapshot(c, s.session.ShowManualInput(c.Request.Context()), nil)
}

func (s *Server) SubmitDescription(c *gin.Context) {
	var req describeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	snap, err := s.session.SubmitDescription(c.Request.Context(), req.Description)
	s.respondSnapshot(c, snap, err)
}

func (s *Server) Recalculate(c *gin.Context) {
	var req recalculateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	snap, err := s.session.Recalculate(c.Request.Context(), req.FoodName)
	s.respondSnapshot(c, snap, err)
}

func (s *Server) AddToLog(c *gin.Context) {
	snap, entry, err := s.session.AddToLog(c.Request.Context())
	c.Set(contextSessionViewKey, string(snap.View))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, addToLogResponse{Entry: entry, Session: snap})
}

func (s *Server) DeleteEntry(c *gin.Context) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, newValidationError("id", "invalid_id", "invalid entry id"))
		return
	}
	s.respondSnapshot(c, s.session.DeleteEntry(c.Request.Context(), id), nil)
}

func (s *Server) Reset(c *gin.Context) {
	s.respondSnapshot(c, s.session.Reset(c.Request.Context()), nil)
}

func (s *Server) respondSnapshot(c *gin.Context, snap sessiondomain.Snapshot, err error) {
	c.Set(contextSessionViewKey, string(snap.View))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}
