package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ledgerScope/internal/query"
)

const defaultLatestLimit = 10

// BlockHandler handles block-related API requests
type BlockHandler struct {
	engine *query.Engine
}

func NewBlockHandler(engine *query.Engine) *BlockHandler {
	return &BlockHandler{engine: engine}
}

// GetByHash returns a block by its hash
// GET /api/v1/blocks/:hash
func (h *BlockHandler) GetByHash(c *gin.Context) {
	block, ok := h.engine.Block(c.Param("hash"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Block not found"})
		return
	}
	c.JSON(http.StatusOK, block)
}

// GetByNumber returns every block stored at a height.
// GET /api/v1/blocks?number=
func (h *BlockHandler) GetByNumber(c *gin.Context) {
	raw, ok := c.GetQuery("number")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "number is required"})
		return
	}
	number, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid number"})
		return
	}
	c.JSON(http.StatusOK, h.engine.BlocksByNumber(number))
}

// GetLatest returns the newest blocks by timestamp.
// GET /api/v1/blocks/latest?limit=
func (h *BlockHandler) GetLatest(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLatestLimit)))
	if err != nil || limit < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
		return
	}
	c.JSON(http.StatusOK, h.engine.LatestBlocks(limit))
}
