package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// TriggerDeadlineScan runs a full deadline sweep on demand. Admin only;
// routine sweeps come from an external cron hitting this endpoint.
func TriggerDeadlineScan(ctx *gin.Context) {
	summary, err := deps.Scanner.Run(ctx.Request.Context())

	if err != nil {
		log.Printf("Deadline scan failed: %v", err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Deadline scan failed"})
		return
	}

	ctx.JSON(http.StatusOK, summary)
}
