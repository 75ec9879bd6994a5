// internal/matching/handlers.go

package matching

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/lmartin/matcha-server/internal/common/utils"
	"github.com/lmartin/matcha-server/internal/config"
)

type Handler struct {
	service Service
	cfg     *config.Config
}

func NewHandler(service Service, cfg *config.Config) *Handler {
	return &Handler{service: service, cfg: cfg}
}

// Suggestions handles POST /api/v1/suggestions
func (h *Handler) Suggestions(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	var params SuggestionParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := utils.ValidateStruct(params); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if params.Limit == 0 {
		params.Limit = h.cfg.DefaultSuggestionLimit
	}
	if params.Limit > h.cfg.MaxSuggestionLimit {
		utils.RespondWithError(w, http.StatusBadRequest,
			fmt.Sprintf("limit must not exceed %d", h.cfg.MaxSuggestionLimit))
		return
	}

	if params.MinAge != nil && *params.MinAge < h.cfg.MinAge {
		utils.RespondWithError(w, http.StatusBadRequest,
			fmt.Sprintf("minAge must be at least %d", h.cfg.MinAge))
		return
	}
	if params.MaxAge != nil && (*params.MaxAge < h.cfg.MinAge || *params.MaxAge > h.cfg.MaxAge) {
		utils.RespondWithError(w, http.StatusBadRequest,
			fmt.Sprintf("maxAge must be between %d and %d", h.cfg.MinAge, h.cfg.MaxAge))
		return
	}
	if params.MinAge != nil && params.MaxAge != nil && *params.MinAge > *params.MaxAge {
		utils.RespondWithError(w, http.StatusBadRequest, "minAge must not exceed maxAge")
		return
	}
	if params.MinFame != nil && params.MaxFame != nil && *params.MinFame > *params.MaxFame {
		utils.RespondWithError(w, http.StatusBadRequest, "minFame must not exceed maxFame")
		return
	}

	response, err := h.service.Suggestions(r.Context(), userID, &params)
	if err != nil {
		switch err {
		case ErrProfileNotFound:
			utils.RespondWithError(w, http.StatusNotFound, "Complete your profile to get suggestions")
		case ErrMissingLocation:
			utils.RespondWithError(w, http.StatusBadRequest, "Set your location to get suggestions")
		default:
			log.Printf("Suggestions failed for user %d: %v", userID, err)
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to get suggestions")
		}
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, response)
}

// Like handles POST /api/v1/like/{userId}
func (h *Handler) Like(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	likedID, err := parseUserID(r)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	result, err := h.service.Like(r.Context(), userID, likedID)
	if err != nil {
		switch err {
		case ErrSelfLike, ErrDuplicateLike:
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		case ErrNoProfilePicture:
			utils.RespondWithError(w, http.StatusForbidden, err.Error())
		case ErrUserUnavailable:
			utils.RespondWithError(w, http.StatusNotFound, err.Error())
		default:
			log.Printf("Like %d -> %d failed: %v", userID, likedID, err)
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to record like")
		}
		return
	}

	message := "Like recorded"
	if result.IsMatch {
		message = "It's a match!"
	}

	utils.RespondWithJSON(w, http.StatusCreated, LikeResponse{
		Message:   message,
		IsMatch:   result.IsMatch,
		LikedUser: result.LikedUser,
	})
}

// Unlike handles DELETE /api/v1/like/{userId}
func (h *Handler) Unlike(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	likedID, err := parseUserID(r)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	if err := h.service.Unlike(r.Context(), userID, likedID); err != nil {
		switch err {
		case ErrSelfLike:
			utils.RespondWithError(w, http.StatusBadRequest, err.Error())
		case ErrLikeNotFound:
			utils.RespondWithError(w, http.StatusNotFound, err.Error())
		default:
			log.Printf("Unlike %d -> %d failed: %v", userID, likedID, err)
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to remove like")
		}
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "Like removed"})
}

// RecordView handles POST /api/v1/views/{userId}
func (h *Handler) RecordView(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(int64)

	viewedID, err := parseUserID(r)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	if err := h.service.RecordView(r.Context(), userID, viewedID); err != nil {
		switch err {
		case ErrUserUnavailable:
			utils.RespondWithError(w, http.StatusNotFound, err.Error())
		default:
			log.Printf("Record view %d -> %d failed: %v", userID, viewedID, err)
			utils.RespondWithError(w, http.StatusInternalServerError, "Failed to record view")
		}
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, map[string]string{"message": "View recorded"})
}

func parseUserID(r *http.Request) (int64, error) {
	vars := mux.Vars(r)
	return strconv.ParseInt(vars["userId"], 10, 64)
}
