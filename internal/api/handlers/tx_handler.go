package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ledgerScope/internal/query"
)

// TxHandler handles transaction-related API requests
type TxHandler struct {
	engine *query.Engine
}

func NewTxHandler(engine *query.Engine) *TxHandler {
	return &TxHandler{engine: engine}
}

// Get returns a transaction by its hash
// GET /api/v1/transactions/:hash
func (h *TxHandler) Get(c *gin.Context) {
	tx, ok := h.engine.Transaction(c.Param("hash"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
		return
	}
	c.JSON(http.StatusOK, tx)
}

// List returns transactions filtered by block hash and/or block number.
// Empty parameters are ignored.
// GET /api/v1/transactions?blockHash=&blockNumber=
func (h *TxHandler) List(c *gin.Context) {
	var filter query.TransactionFilter
	if hash := c.Query("blockHash"); hash != "" {
		filter.BlockHash = &hash
	}
	if raw := c.Query("blockNumber"); raw != "" {
		number, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid blockNumber"})
			return
		}
		filter.BlockNumber = &number
	}
	c.JSON(http.StatusOK, h.engine.TransactionsForBlock(filter))
}
