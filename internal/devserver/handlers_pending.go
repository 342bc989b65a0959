package devserver

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/dharsanguruparan/CircularNest/internal/model"
)

func (s *Server) handleSubmit(c *gin.Context) {
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
	rec.Status = model.StatusPending
	rec.UploadedBy = &model.Uploader{ID: callerID(c), Email: s.callerEmail(c)}
	s.store.SavePending(rec, sub.file)
	log.Printf("submission %s queued by %s", rec.ID, rec.UploadedBy.Email)
	respond(c, http.StatusCreated, gin.H{"pendingUpload": s.withFileURL(*rec), "message": "File submitted for review"})
}

// handleGuestSubmit queues an anonymous submission. The guest name defaults
// to "Anonymous"; a guest email, when given, must be well formed.
func (s *Server) handleGuestSubmit(c *gin.Context) {
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
	rec.Status = model.StatusPending
	rec.GuestName = strings.TrimSpace(sub.fields["guestName"])
	if rec.GuestName == "" {
		rec.GuestName = "Anonymous"
	}
	rec.GuestEmail = strings.TrimSpace(sub.fields["guestEmail"])
	if err := s.validate.Var(rec.GuestEmail, "omitempty,email"); err != nil {
		fail(c, http.StatusBadRequest, "Invalid guest email")
		return
	}
	s.store.SavePending(rec, sub.file)
	log.Printf("guest submission %s queued by %s", rec.ID, rec.GuestName)
	respond(c, http.StatusCreated, gin.H{"pendingUpload": s.withFileURL(*rec), "message": "File submitted for review"})
}

func (s *Server) withFileURL(rec model.PendingUpload) model.PendingUpload {
	rec.FileURL = "/api/pending/" + rec.ID + "/file"
	return rec
}

func (s *Server) handleListPending(c *gin.Context) {
	status := model.Status(c.Query("status"))
	if status != "" && !status.Valid() {
		fail(c, http.StatusBadRequest, "Invalid status")
		return
	}
	s.respondPending(c, s.store.ListPending(status, ""))
}

func (s *Server) handleMySubmissions(c *gin.Context) {
	s.respondPending(c, s.store.ListPending("", callerID(c)))
}

func (s *Server) respondPending(c *gin.Context, records []model.PendingUpload) {
	for i := range records {
		records[i] = s.withFileURL(records[i])
	}
	respond(c, http.StatusOK, gin.H{"pendingUploads": records, "total": len(records)})
}

// handleReview decides a pending submission. Only the first decision wins;
// later ones get 409.
func (s *Server) handleReview(decision model.Status) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body struct {
			ReviewNotes string `json:"reviewNotes"`
		}
		if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
			fail(c, http.StatusBadRequest, "Invalid review body")
			return
		}
		rec, err := s.store.Review(c.Param("id"), decision, strings.TrimSpace(body.ReviewNotes), s.callerEmail(c))
		if err != nil {
			s.storeError(c, err)
			return
		}
		log.Printf("submission %s %s by %s", rec.ID, decision, rec.ReviewedBy)
		s.attachURL(&rec, false)
		msg := "Circular approved and published"
		if decision == model.StatusRejected {
			msg = "Circular rejected"
		}
		respond(c, http.StatusOK, gin.H{"circular": rec, "message": msg})
	}
}

// handleDeletePending lets admins remove any submission and owners remove
// their own until it is published.
func (s *Server) handleDeletePending(c *gin.Context) {
	id := c.Param("id")
	rec, err := s.store.Pending(id)
	if err != nil {
		fail(c, http.StatusNotFound, "Submission not found")
		return
	}
	if !isAdmin(c) {
		if rec.UploaderID() != callerID(c) {
			fail(c, http.StatusForbidden, "Not allowed to delete this submission")
			return
		}
		if rec.Bucket() == model.StatusApproved {
			fail(c, http.StatusForbidden, "Cannot delete approved circulars")
			return
		}
	}
	if err := s.store.DeletePending(id); err != nil {
		s.storeError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"message": "Submission deleted successfully"})
}

func (s *Server) handlePendingFile(c *gin.Context) {
	id := c.Param("id")
	rec, err := s.store.Pending(id)
	if err != nil {
		fail(c, http.StatusNotFound, "Submission not found")
		return
	}
	if !isAdmin(c) && rec.UploaderID() != callerID(c) {
		fail(c, http.StatusForbidden, "Not allowed to view this file")
		return
	}
	s.serveFile(c, id)
}
