package server

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	nutritiondomain "github.com/smallbiznis/snapcount/internal/nutrition/domain"
	obslogger "github.com/smallbiznis/snapcount/internal/observability/logger"
	sessiondomain "github.com/smallbiznis/snapcount/internal/session/domain"
	"go.uber.org/zap"
)

type analyzeFoodRequest struct {
	Image       string `json:"image"`
	Description string `json:"description"`
}

// analyzeFoodError is the flat error body of the stateless estimator route.
type analyzeFoodError struct {
	Error string `json:"error"`
}

var errMalformedDataURL = errors.New("malformed_data_url")

// AnalyzeFood estimates one image or description without touching the
// session. An image takes precedence when both are sent.
func (s *Server) AnalyzeFood(c *gin.Context) {
	var req analyzeFoodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, analyzeFoodError{Error: nutritiondomain.MessageInvalidRequest})
		return
	}

	var estimate nutritiondomain.Request
	switch {
	case strings.TrimSpace(req.Image) != "":
		image, err := parseDataURL(req.Image)
		if err != nil {
			c.JSON(http.StatusBadRequest, analyzeFoodError{Error: nutritiondomain.MessageInvalidRequest})
			return
		}
		estimate.Image = &image
	case strings.TrimSpace(req.Description) != "":
		estimate.Description = req.Description
	default:
		c.JSON(http.StatusBadRequest, analyzeFoodError{Error: nutritiondomain.MessageInvalidRequest})
		return
	}

	ctx := c.Request.Context()
	result, err := s.estimator.Estimate(ctx, estimate)
	switch {
	case errors.Is(err, nutritiondomain.ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, analyzeFoodError{Error: nutritiondomain.MessageInvalidRequest})
	case err != nil:
		obslogger.FromContext(ctx).Error("analyze food failed", zap.Error(err))
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, analyzeFoodError{Error: nutritiondomain.MessageTransportFailure})
	case result.OK():
		c.JSON(http.StatusOK, result.Record)
	default:
		c.JSON(http.StatusOK, analyzeFoodError{Error: result.Message})
	}
}

func (s *Server) ListSuggestions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"suggestions": sessiondomain.Suggestions})
}

// parseDataURL splits data:<mime>;base64,<payload>.
func parseDataURL(raw string) (nutritiondomain.Image, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(raw), "data:")
	if !ok {
		return nutritiondomain.Image{}, errMalformedDataURL
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nutritiondomain.Image{}, errMalformedDataURL
	}
	mimeType, encoding, _ := strings.Cut(meta, ";")
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if mimeType == "" || !strings.EqualFold(strings.TrimSpace(encoding), "base64") {
		return nutritiondomain.Image{}, errMalformedDataURL
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		if data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "=")); err != nil {
			return nutritiondomain.Image{}, errMalformedDataURL
		}
	}
	if len(data) == 0 {
		return nutritiondomain.Image{}, errMalformedDataURL
	}
	return nutritiondomain.Image{Data: data, MIMEType: mimeType}, nil
}
