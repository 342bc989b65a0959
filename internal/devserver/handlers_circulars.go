package devserver

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dharsanguruparan/CircularNest/internal/model"
)

const maxPageSize = 500

// handleListCirculars serves /api/circulars and, with signed set, the
// /circulars variant whose file URLs open without a token.
func (s *Server) handleListCirculars(signed bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var filter CircularFilter
		if raw := c.Query("category"); raw != "" {
			category, ok := model.ParseCategory(raw)
			if !ok {
				fail(c, http.StatusBadRequest, fmt.Sprintf("Invalid category %q", raw))
				return
			}
			filter.Category = category
		}
		if raw := c.Query("status"); raw != "" {
			status := model.Status(raw)
			if !status.Valid() {
				fail(c, http.StatusBadRequest, fmt.Sprintf("Invalid status %q", raw))
				return
			}
			filter.Status = status
		}
		if !isAdmin(c) {
			filter.Status = model.StatusApproved
		}
		filter.UserID = c.Query("userId")

		limit, err := queryInt(c, "limit", 0)
		if err != nil || limit < 0 {
			fail(c, http.StatusBadRequest, "limit must be a positive number")
			return
		}
		page, err := queryInt(c, "page", 1)
		if err != nil || page < 1 {
			fail(c, http.StatusBadRequest, "page must be a positive number")
			return
		}
		if limit == 0 || limit > maxPageSize {
			limit = maxPageSize
		}

		all := s.store.ListCirculars(filter)
		start := min((page-1)*limit, len(all))
		end := min(start+limit, len(all))
		out := all[start:end]
		for i := range out {
			s.attachURL(&out[i], signed)
		}
		respond(c, http.StatusOK, gin.H{
			"circulars": out,
			"total":     len(all),
			"page":      page,
			"limit":     limit,
		})
	}
}

func queryInt(c *gin.Context, key string, fallback int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

func (s *Server) attachURL(rec *model.Circular, signed bool) {
	if signed {
		rec.FileURL = s.signer.SignedPath("/files", rec.ID, s.cfg.SignedURLTTL)
		return
	}
	rec.FileURL = "/api/circulars/" + rec.ID + "/download"
}

// visible hides unpublished records from everyone but admins and the owner.
func visible(c *gin.Context, rec model.Circular) bool {
	if rec.Bucket() == model.StatusApproved || isAdmin(c) {
		return true
	}
	id := callerID(c)
	return id != "" && id == rec.UploaderID()
}

func (s *Server) handleGetCircular(c *gin.Context) {
	rec, err := s.store.Circular(c.Param("id"))
	if err != nil || !visible(c, rec) {
		fail(c, http.StatusNotFound, "Circular not found")
		return
	}
	s.attachURL(&rec, false)
	respond(c, http.StatusOK, gin.H{"circular": rec})
}

func (s *Server) handleDownloadCircular(c *gin.Context) {
	id := c.Param("id")
	rec, err := s.store.Circular(id)
	if err != nil || !visible(c, rec) {
		fail(c, http.StatusNotFound, "Circular not found")
		return
	}
	s.serveFile(c, id)
}

// handleSignedFile serves a PDF to anyone holding a valid signed URL.
func (s *Server) handleSignedFile(c *gin.Context) {
	id := c.Param("id")
	if err := s.signer.Verify(id, c.Request.URL.Query()); err != nil {
		fail(c, http.StatusForbidden, "Invalid or expired file link")
		return
	}
	s.serveFile(c, id)
}

func (s *Server) serveFile(c *gin.Context, id string) {
	file, err := s.store.File(id)
	if err != nil {
		fail(c, http.StatusNotFound, "File not found")
		return
	}
	c.Header("Content-Type", file.ContentType)
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", file.Name))
	http.ServeContent(c.Writer, c.Request, file.Name, file.ModTime, bytes.NewReader(file.Data))
}

type circularPatch struct {
	Title       *string       `json:"title"`
	Description *string       `json:"description"`
	Category    *string       `json:"category"`
	OrderDate   *string       `json:"orderDate"`
	IsPublished *bool         `json:"isPublished"`
	Status      *model.Status `json:"status"`
}

func (p circularPatch) apply(rec *model.Circular) error {
	if p.Title != nil {
		rec.Title = *p.Title
	}
	if p.Description != nil {
		rec.Description = *p.Description
	}
	if p.Category != nil {
		category, ok := model.ParseCategory(*p.Category)
		if !ok {
			return badInput("Invalid category %q", *p.Category)
		}
		rec.Category = category
	}
	if p.OrderDate != nil {
		if *p.OrderDate != "" {
			if _, err := time.Parse("2006-01-02", *p.OrderDate); err != nil {
				return badInput("orderDate must be YYYY-MM-DD")
			}
		}
		rec.OrderDate = *p.OrderDate
	}
	if p.Status != nil {
		if !p.Status.Valid() {
			return badInput("Invalid status %q", *p.Status)
		}
		rec.Status = *p.Status
		rec.IsPublished = *p.Status == model.StatusApproved
	}
	if p.IsPublished != nil {
		rec.IsPublished = *p.IsPublished
	}
	return nil
}

func (s *Server) handleUpdateCircular(c *gin.Context) {
	var patch circularPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		fail(c, http.StatusBadRequest, "Invalid update")
		return
	}
	rec, err := s.store.UpdateCircular(c.Param("id"), patch.apply)
	if err != nil {
		s.storeError(c, err)
		return
	}
	s.attachURL(&rec, false)
	respond(c, http.StatusOK, gin.H{"circular": rec, "message": "Circular updated"})
}

type statusBody struct {
	Status      model.Status `json:"status" binding:"required"`
	ReviewNotes string       `json:"reviewNotes"`
}

func (s *Server) handleCircularStatus(c *gin.Context) {
	var body statusBody
	if err := c.ShouldBindJSON(&body); err != nil || !body.Status.Terminal() {
		fail(c, http.StatusBadRequest, "Status must be approved or rejected")
		return
	}
	reviewer := s.callerEmail(c)
	rec, err := s.store.UpdateCircular(c.Param("id"), func(rec *model.Circular) error {
		now := time.Now().UTC()
		rec.Status = body.Status
		rec.ReviewNotes = body.ReviewNotes
		rec.ReviewedBy = reviewer
		rec.ReviewedAt = &now
		rec.IsPublished = body.Status == model.StatusApproved
		return nil
	})
	if err != nil {
		s.storeError(c, err)
		return
	}
	s.attachURL(&rec, false)
	respond(c, http.StatusOK, gin.H{"circular": rec, "message": fmt.Sprintf("Circular %s", body.Status)})
}

func (s *Server) handleDeleteCircular(c *gin.Context) {
	if err := s.store.DeleteCircular(c.Param("id")); err != nil {
		s.storeError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"message": "Circular deleted successfully"})
}

// handleAdminUpload publishes directly. The status field may hold a review
// state; it defaults to approved.
func (s *Server) handleAdminUpload(c *gin.Context) {
	sub, err := s.readSubmission(c)
	if err != nil {
		uploadFailed(c, err)
		return
	}
	rec, err := s.newRecord(uuid.NewString(), sub.fields, sub.file)
	if err != nil {
		uploadFailed(c, err)
		return
	}
	rec.Status = model.StatusApproved
	if raw := sub.fields["status"]; raw != "" {
		if status := model.Status(raw); status.Valid() {
			rec.Status = status
		}
	}
	rec.IsPublished = rec.Status == model.StatusApproved
	rec.UploadedBy = &model.Uploader{ID: callerID(c), Email: s.callerEmail(c)}
	s.store.SaveCircular(rec, sub.file)
	log.Printf("circular %s uploaded by %s (%d bytes)", rec.ID, rec.UploadedBy.Email, rec.FileSize)

	out := *rec
	s.attachURL(&out, false)
	respond(c, http.StatusCreated, gin.H{"circular": out, "message": "Circular uploaded successfully"})
}

func (s *Server) callerEmail(c *gin.Context) string {
	user, err := s.store.User(callerID(c))
	if err != nil {
		return ""
	}
	return user.Email
}

func uploadFailed(c *gin.Context, err error) {
	var input *inputError
	if errors.As(err, &input) {
		fail(c, http.StatusBadRequest, input.msg)
		return
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		fail(c, http.StatusBadRequest, "Upload was interrupted")
		return
	}
	log.Printf("upload failed: %v", err)
	fail(c, http.StatusBadRequest, "Failed to read upload")
}

func (s *Server) storeError(c *gin.Context, err error) {
	var input *inputError
	switch {
	case errors.As(err, &input):
		fail(c, http.StatusBadRequest, input.msg)
	case errors.Is(err, ErrNotFound):
		fail(c, http.StatusNotFound, "Not found")
	case errors.Is(err, ErrAlreadyDecided):
		fail(c, http.StatusConflict, "Submission already reviewed")
	default:
		log.Printf("store error: %v", err)
		fail(c, http.StatusInternalServerError, "Internal server error")
	}
}
