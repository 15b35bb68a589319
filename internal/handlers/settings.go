package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	"github.com/costpilot-dev/costpilot/internal/prefs"
	"github.com/costpilot-dev/costpilot/internal/utils"
)

// GetPreferences returns the effective preference object: whatever is
// stored merged over the documented defaults.
func GetPreferences(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	user, err := deps.Profiles.GetUser(ctx.Request.Context(), userID)

	if err != nil {
		log.Printf("Failed to fetch user %d: %v", userID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve preferences"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"preferences": prefs.Decode(user.Preferences)})
}

// UpdatePreferences merges the submitted partial over the current
// effective preferences and stores the merged object whole, so later
// reads never depend on the shape of any single update.
func UpdatePreferences(ctx *gin.Context) {
	userID, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	user, err := deps.Profiles.GetUser(ctx.Request.Context(), userID)

	if err != nil {
		log.Printf("Failed to fetch user %d: %v", userID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve preferences"})
		return
	}

	raw, err := ctx.GetRawData()

	if err != nil || len(raw) == 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	updated := prefs.Merge(prefs.Decode(user.Preferences), raw)

	stored, err := prefs.Encode(updated)

	if err != nil {
		log.Printf("Failed to encode preferences for user %d: %v", userID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update preferences"})
		return
	}

	fields := map[string]interface{}{"preferences": datatypes.JSON(stored)}

	if err := deps.Profiles.UpdateUser(ctx.Request.Context(), userID, fields); err != nil {
		log.Printf("Failed to store preferences for user %d: %v", userID, err)
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update preferences"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"preferences": updated})
}
