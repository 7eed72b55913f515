package api

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/nishio/dealroom/internal/auth"
	"github.com/nishio/dealroom/internal/chat"
	"github.com/nishio/dealroom/internal/deal"
	"github.com/nishio/dealroom/internal/models"
	"github.com/nishio/dealroom/internal/rating"
	"github.com/nishio/dealroom/internal/upload"
)

// userHeader carries the session-resolved user id. Stands in for the
// external identity provider: the gateway in front of this service
// authenticates the session and forwards the user id here.
const userHeader = "X-User-ID"

// registerRoutes sets up all API routes on the Gin router.
func registerRoutes(router *gin.Engine, opts StartOpts) {
	router.GET("/healthz", handleHealth())

	r := router.Group("", requireUser())
	r.GET("/transactions", handleListTransactions(opts))
	r.GET("/transactions/:id", handleGetTransaction(opts))
	r.POST("/transactions/:id/complete", handleCompleteTransaction(opts))
	r.GET("/transactions/:id/messages", handleListMessages(opts))
	r.POST("/transactions/:id/messages", handleSendMessage(opts))
	r.POST("/transactions/:id/read", handleMarkRead(opts.DB))
	r.GET("/transactions/:id/ratings", handleListRatings(opts))
	r.POST("/transactions/:id/ratings", handleCreateRating(opts))
	r.PATCH("/messages/:id", handleUpdateMessage(opts.DB))
	r.DELETE("/messages/:id", handleDeleteMessage(opts.DB))
	r.GET("/items/:id/active", handleItemActive(opts.DB))
	r.GET("/users/:id/rating", handleUserRating(opts.DB))
}

// requireUser resolves the actor once at the request boundary. Every
// handler downstream reads the resolved id from the context.
func requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := auth.RequireAuthentication(auth.Static(c.GetHeader(userHeader)))
		if err != nil {
			renderError(c, err)
			c.Abort()
			return
		}
		c.Set("userID", userID)
		c.Next()
	}
}

func currentUser(c *gin.Context) string { return c.GetString("userID") }

func handleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func handleListTransactions(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		txs, err := deal.ListByUser(opts.DB, currentUser(c))
		if err != nil {
			renderError(c, err)
			return
		}
		views := make([]transactionView, 0, len(txs))
		for i := range txs {
			views = append(views, viewTransaction(&txs[i], itemName(opts, txs[i].ItemID)))
		}
		c.JSON(http.StatusOK, gin.H{"transactions": views})
	}
}

func handleGetTransaction(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := currentUser(c)
		tx, err := deal.Get(opts.DB, c.Param("id"), userID)
		if err != nil {
			renderError(c, err)
			return
		}
		unread, err := chat.UnreadCount(opts.DB, tx.ID, userID)
		if err != nil {
			renderError(c, err)
			return
		}
		// Gating workflow: prompt for a rating as soon as the deal is
		// completed and this party has not rated yet.
		prompt := false
		if tx.Status == models.StatusCompleted {
			rated, err := rating.HasRated(opts.DB, tx.ID, userID)
			if err != nil {
				renderError(c, err)
				return
			}
			prompt = !rated
		}
		c.JSON(http.StatusOK, transactionDetail{
			transactionView:    viewTransaction(tx, itemName(opts, tx.ItemID)),
			UnreadCount:        unread,
			ShouldPromptRating: prompt,
		})
	}
}

func handleCompleteTransaction(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		tx, err := deal.Complete(c.Request.Context(), opts.DB, c.Param("id"), currentUser(c), deal.CompleteOpts{
			Notifier:  opts.Notifier,
			Directory: opts.Directory,
		})
		if err != nil {
			renderError(c, err)
			return
		}
		c.JSON(http.StatusOK, viewTransaction(tx, itemName(opts, tx.ItemID)))
	}
}

func handleListMessages(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := currentUser(c)
		txID := c.Param("id")
		if _, err := deal.Get(opts.DB, txID, userID); err != nil {
			renderError(c, err)
			return
		}
		// Viewing the thread is what creates read receipts: everything
		// the counterpart sent is now seen.
		if err := chat.MarkRead(opts.DB, txID, userID); err != nil {
			renderError(c, err)
			return
		}
		msgs, err := chat.ListByTransaction(opts.DB, txID)
		if err != nil {
			renderError(c, err)
			return
		}
		views := make([]messageView, 0, len(msgs))
		for i := range msgs {
			views = append(views, viewMessage(&msgs[i]))
		}
		c.JSON(http.StatusOK, gin.H{"messages": views})
	}
}

func handleSendMessage(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		sendOpts, err := parseSendPayload(c, opts.Uploads)
		if err != nil {
			renderError(c, err)
			return
		}
		msg, err := chat.Send(opts.DB, c.Param("id"), currentUser(c), sendOpts)
		if err != nil {
			renderError(c, err)
			return
		}
		c.JSON(http.StatusCreated, viewMessage(msg))
	}
}

// parseSendPayload accepts either a JSON body with content or a
// multipart form with a content field and image files.
func parseSendPayload(c *gin.Context, store upload.Store) (chat.SendOpts, error) {
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		var body struct {
			Content string `json:"content"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			return chat.SendOpts{}, fmtInvalidBody(err)
		}
		return chat.SendOpts{Content: body.Content}, nil
	}

	form, err := c.MultipartForm()
	if err != nil {
		return chat.SendOpts{}, fmtInvalidBody(err)
	}
	sendOpts := chat.SendOpts{
		Content: c.PostForm("content"),
		Store:   store,
	}
	for _, fh := range form.File["images"] {
		f, err := fh.Open()
		if err != nil {
			continue // skipped, same as a failed upload
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			continue
		}
		sendOpts.Images = append(sendOpts.Images, upload.RawFile{Name: fh.Filename, Data: data})
	}
	return sendOpts, nil
}

func handleUpdateMessage(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body struct {
			Content string `json:"content" binding:"required,max=400"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			renderError(c, fmtInvalidBody(err))
			return
		}
		msg, err := chat.Update(db, c.Param("id"), currentUser(c), body.Content)
		if err != nil {
			renderError(c, err)
			return
		}
		c.JSON(http.StatusOK, viewMessage(msg))
	}
}

func handleDeleteMessage(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := chat.Delete(db, c.Param("id"), currentUser(c)); err != nil {
			renderError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func handleMarkRead(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := chat.MarkRead(db, c.Param("id"), currentUser(c)); err != nil {
			renderError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func handleListRatings(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		tx, err := deal.Get(opts.DB, c.Param("id"), currentUser(c))
		if err != nil {
			renderError(c, err)
			return
		}
		ratings, err := rating.ListByTransaction(opts.DB, tx.ID)
		if err != nil {
			renderError(c, err)
			return
		}
		completed, err := rating.IsCompleted(opts.DB, tx.ID, tx.BuyerID, tx.SellerID)
		if err != nil {
			renderError(c, err)
			return
		}
		views := make([]ratingView, 0, len(ratings))
		for i := range ratings {
			views = append(views, viewRating(&ratings[i]))
		}
		c.JSON(http.StatusOK, gin.H{"ratings": views, "ratingCompleted": completed})
	}
}

func handleCreateRating(opts StartOpts) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := currentUser(c)
		tx, err := deal.Get(opts.DB, c.Param("id"), userID)
		if err != nil {
			renderError(c, err)
			return
		}
		var body struct {
			Score   int    `json:"score" binding:"required"`
			Comment string `json:"comment" binding:"max=500"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			renderError(c, fmtInvalidBody(err))
			return
		}
		// The counterpart is always the rated party.
		ratedID := tx.SellerID
		if userID == tx.SellerID {
			ratedID = tx.BuyerID
		}
		r, err := rating.Create(opts.DB, tx.ID, userID, ratedID, body.Score, body.Comment)
		if err != nil {
			renderError(c, err)
			return
		}
		c.JSON(http.StatusCreated, viewRating(r))
	}
}

func handleItemActive(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		active, err := deal.HasActiveForItem(db, c.Param("id"))
		if err != nil {
			renderError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"active": active})
	}
}

func handleUserRating(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		avg, err := rating.AverageFor(db, c.Param("id"))
		if err != nil {
			renderError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"average": avg})
	}
}

func itemName(opts StartOpts, itemID string) string {
	if opts.Directory == nil {
		return itemID
	}
	return opts.Directory.ItemName(itemID)
}
