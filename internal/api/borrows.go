package api

import (
	"net/http"

	"library-service/internal/service"

	"github.com/gin-gonic/gin"
)

type renewRequest struct {
	Days int `json:"days"`
}

type fineRequest struct {
	FineAmount float64 `json:"fine_amount" binding:"required"`
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *Handler) listBorrows(c *gin.Context) {
	borrows, err := h.lifecycle.ListBorrows(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, borrows)
}

func (h *Handler) getBorrow(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	borrow, err := h.lifecycle.GetBorrow(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, borrow)
}

func (h *Handler) createBorrow(c *gin.Context) {
	var req service.CreateBorrowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	id, err := h.lifecycle.CreateBorrow(c.Request.Context(), actorFrom(c), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "borrow created",
		"id":      id,
	})
}

func (h *Handler) returnBook(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.lifecycle.ReturnBook(c.Request.Context(), actorFrom(c), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "book returned"})
}

func (h *Handler) renewBorrow(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	// An empty body means the default extension.
	var req renewRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid request body",
				"details": err.Error(),
			})
			return
		}
	}

	newDueDate, err := h.lifecycle.Renew(c.Request.Context(), actorFrom(c), id, req.Days)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":      "borrow renewed",
		"new_due_date": newDueDate.Format("2006-01-02"),
	})
}

func (h *Handler) applyFine(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req fineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if err := h.lifecycle.ApplyFine(c.Request.Context(), actorFrom(c), id, req.FineAmount); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":     "fine applied",
		"fine_amount": req.FineAmount,
	})
}

func (h *Handler) updateBorrowStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if err := h.lifecycle.MarkStatus(c.Request.Context(), actorFrom(c), id, req.Status); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "status updated"})
}
