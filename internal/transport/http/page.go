package http

import (
	_ "embed"
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
)

//go:embed index.html
var indexHTML []byte

func pageHandler(c *gin.Context) {
	c.Data(stdhttp.StatusOK, "text/html; charset=utf-8", indexHTML)
}
