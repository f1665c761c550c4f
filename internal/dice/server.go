package dice

import (
	"math/rand/v2"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	MinFace = 1
	MaxFace = 6
)

// RollResponse is the body returned by GET /.
type RollResponse struct {
	Value int `json:"value"`
}

// Roll returns a face drawn uniformly from MinFace..MaxFace.
func Roll() int {
	return rand.IntN(MaxFace-MinFace+1) + MinFace
}

// Handlers serves the dice endpoint.
type Handlers struct {
	roll func() int
}

// NewHandlers creates dice handlers. A nil roll uses Roll.
func NewHandlers(roll func() int) *Handlers {
	if roll == nil {
		roll = Roll
	}
	return &Handlers{roll: roll}
}

// Register mounts the dice routes on r.
func (h *Handlers) Register(r gin.IRoutes) {
	r.GET("/", h.RollDice)
	r.GET("/health", h.Health)
}

// RollDice returns one random value.
// GET /
func (h *Handlers) RollDice(c *gin.Context) {
	c.JSON(http.StatusOK, RollResponse{Value: h.roll()})
}

// Health reports liveness.
// GET /health
func (h *Handlers) Health(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}
