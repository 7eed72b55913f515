package api

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nishio/dealroom/internal/fault"
	"github.com/nishio/dealroom/internal/models"
)

// Views are the flat, serializable shapes exposed to clients: opaque
// string ids, RFC 3339 timestamps, no nested live object graphs.

type transactionView struct {
	ID          string  `json:"id"`
	ItemID      string  `json:"itemId"`
	ItemName    string  `json:"itemName"`
	BuyerID     string  `json:"buyerId"`
	SellerID    string  `json:"sellerId"`
	Status      string  `json:"status"`
	CreatedAt   string  `json:"createdAt"`
	UpdatedAt   string  `json:"updatedAt"`
	CompletedAt *string `json:"completedAt,omitempty"`
}

type transactionDetail struct {
	transactionView
	UnreadCount        int64 `json:"unreadCount"`
	ShouldPromptRating bool  `json:"shouldPromptRating"`
}

type messageView struct {
	ID            string   `json:"id"`
	TransactionID string   `json:"transactionId"`
	AuthorID      string   `json:"authorId"`
	Content       string   `json:"content"`
	Images        []string `json:"images"`
	CreatedAt     string   `json:"createdAt"`
	UpdatedAt     *string  `json:"updatedAt,omitempty"`
}

type ratingView struct {
	ID            string `json:"id"`
	TransactionID string `json:"transactionId"`
	RaterID       string `json:"raterId"`
	RatedID       string `json:"ratedId"`
	Score         int    `json:"score"`
	Comment       string `json:"comment,omitempty"`
	CreatedAt     string `json:"createdAt"`
}

func stamp(t time.Time) string { return t.Format(time.RFC3339) }

func stampPtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := stamp(*t)
	return &s
}

func viewTransaction(tx *models.Transaction, itemName string) transactionView {
	return transactionView{
		ID:          tx.ID,
		ItemID:      tx.ItemID,
		ItemName:    itemName,
		BuyerID:     tx.BuyerID,
		SellerID:    tx.SellerID,
		Status:      tx.Status,
		CreatedAt:   stamp(tx.CreatedAt),
		UpdatedAt:   stamp(tx.UpdatedAt),
		CompletedAt: stampPtr(tx.CompletedAt),
	}
}

func viewMessage(m *models.Message) messageView {
	images := make([]string, 0, len(m.Images))
	for _, img := range m.Images {
		images = append(images, img.StoragePath)
	}
	return messageView{
		ID:            m.ID,
		TransactionID: m.TransactionID,
		AuthorID:      m.AuthorID,
		Content:       m.Content,
		Images:        images,
		CreatedAt:     stamp(m.CreatedAt),
		UpdatedAt:     stampPtr(m.UpdatedAt),
	}
}

func viewRating(r *models.Rating) ratingView {
	return ratingView{
		ID:            r.ID,
		TransactionID: r.TransactionID,
		RaterID:       r.RaterID,
		RatedID:       r.RatedID,
		Score:         r.Score,
		Comment:       r.Comment,
		CreatedAt:     stamp(r.CreatedAt),
	}
}

// renderError maps the taxonomy to HTTP statuses. Anything outside the
// taxonomy is an infrastructure failure: logged, reported as a bare 500.
func renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, fault.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
	case errors.Is(err, fault.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed"})
	case errors.Is(err, fault.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, fault.ErrValidation):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": validationMessage(err)})
	case errors.Is(err, fault.ErrDuplicateRating):
		c.JSON(http.StatusConflict, gin.H{"error": "already rated"})
	case errors.Is(err, fault.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"error": "conflicts with current state"})
	default:
		log.Printf("api: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// fmtInvalidBody converts a binding failure into a taxonomy validation
// error so renderError maps it to 422 without leaking binding internals.
func fmtInvalidBody(error) error {
	return fault.Validationf("invalid request body")
}

// validationMessage strips the sentinel prefix so clients see only the
// caller-facing part of a validation error.
func validationMessage(err error) string {
	msg := err.Error()
	if idx := strings.Index(msg, fault.ErrValidation.Error()+": "); idx >= 0 {
		return msg[idx+len(fault.ErrValidation.Error())+2:]
	}
	return "invalid input"
}
