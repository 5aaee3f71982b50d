package api

import (
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"coaching-api/domain"
)

func (s *server) listAttachments(c echo.Context, scope domain.Scope, m *requestMetrics) error {
	attachments, err := s.Teams.ListAttachments(c.Request().Context(), scope.OrgID)
	if err != nil {
		return s.storageError(c, m, err)
	}
	if pid := c.QueryParam("participantId"); pid != "" {
		filtered := attachments[:0]
		for _, a := range attachments {
			if a.ParticipantID == pid {
				filtered = append(filtered, a)
			}
		}
		attachments = filtered
	}
	return c.JSON(http.StatusOK, attachments)
}

// createAttachment uploads the multipart "file" field and records it for the
// caller's organization. Upload failures answer 502; a record failure after
// a successful upload answers 500 and carries the uploaded URL.
func (s *server) createAttachment(c echo.Context, scope domain.Scope, m *requestMetrics) error {
	ctx := c.Request().Context()
	c.Request().Body = http.MaxBytesReader(c.Response(), c.Request().Body, uploadMaxSize)

	fh, err := c.FormFile("file")
	if err != nil {
		m.Fail("decode", err)
		return jsonError(c, http.StatusBadRequest, "file is required")
	}
	participantID := c.FormValue("participantId")
	if participantID != "" {
		p, err := s.participantOr404(c, scope, m, participantID)
		if p == nil {
			return err
		}
	}

	src, err := fh.Open()
	if err != nil {
		m.Fail("decode", err)
		return jsonError(c, http.StatusBadRequest, "unreadable file")
	}
	defer src.Close()

	id := uuid.NewString()
	name := path.Base(strings.ReplaceAll(fh.Filename, "\\", "/"))
	contentType := fh.Header.Get(echo.HeaderContentType)

	uploadStart := time.Now()
	uploaded, err := s.Blobs.Upload(ctx, scope.OrgID+"/"+id+"/"+name, name, contentType, fh.Size, src)
	m.ObserveStage("upload", time.Since(uploadStart))
	if err != nil {
		m.Fail("upload", err)
		c.Logger().Error(err)
		return jsonError(c, http.StatusBadGateway, "upload failed")
	}

	a := domain.Attachment{
		ID:            id,
		OrgID:         scope.OrgID,
		ParticipantID: participantID,
		URL:           uploaded.URL,
		Name:          uploaded.Name,
		Type:          uploaded.Type,
		Size:          uploaded.Size,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.Teams.RecordAttachment(ctx, scope, a); err != nil {
		m.Fail("storage", err)
		c.Logger().Error(err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "attachment uploaded but not recorded", URL: uploaded.URL})
	}
	m.Set("bytes", a.Size)
	s.publish(c, scope, domain.ActivityAttachmentAdded, a.ID)
	return c.JSON(http.StatusCreated, a)
}
