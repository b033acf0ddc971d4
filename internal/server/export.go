package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/snapcount/internal/export"
)

func (s *Server) ExportPDF(c *gin.Context) {
	doc, err := s.exporter.PDF(c.Request.Context())
	s.writeDocument(c, doc, err)
}

func (s *Server) ExportXLSX(c *gin.Context) {
	doc, err := s.exporter.XLSX(c.Request.Context())
	s.writeDocument(c, doc, err)
}

func (s *Server) writeDocument(c *gin.Context, doc export.Document, err error) {
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, doc.ContentType, doc.Data)
}
