package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"tradeMonkAPI/internal/types/challenge"
	"tradeMonkAPI/services"
)

type ChallengeHandler struct {
	challengeService *services.ChallengeService
}

func NewChallengeHandler(challengeService *services.ChallengeService) *ChallengeHandler {
	return &ChallengeHandler{
		challengeService: challengeService,
	}
}

func (h *ChallengeHandler) GetTemplates(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, challenge.Templates())
}

type createChallengeRequest struct {
	TemplateID string                      `json:"template_id,omitempty"`
	Custom     *challenge.CustomDefinition `json:"custom,omitempty"`
}

func (h *ChallengeHandler) StartChallenge(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID := mux.Vars(r)["userID"]

	var req createChallengeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var (
		ch  *challenge.Challenge
		err error
	)
	switch {
	case req.TemplateID != "":
		ch, err = h.challengeService.CreateFromTemplate(userID, req.TemplateID)
	case req.Custom != nil:
		ch, err = h.challengeService.CreateCustom(userID, req.Custom)
	default:
		respondWithError(w, http.StatusBadRequest, "Either template_id or custom is required")
		return
	}
	if err != nil {
		respondChallengeError(w, err)
		return
	}

	if err := h.challengeService.Start(ctx, ch); err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusCreated, ch)
}

func (h *ChallengeHandler) GetActiveChallenge(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID := mux.Vars(r)["userID"]

	ch, err := h.challengeService.Active(ctx, userID)
	if err != nil {
		respondChallengeError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, ch)
}

func (h *ChallengeHandler) GetChallengeHistory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID := mux.Vars(r)["userID"]

	history, err := h.challengeService.History(ctx, userID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, history)
}

type toggleTaskRequest struct {
	DayNumber int    `json:"day_number"`
	TaskID    string `json:"task_id"`
}

func (h *ChallengeHandler) ToggleTask(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID := mux.Vars(r)["userID"]

	var req toggleTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ch, err := h.challengeService.ToggleTask(ctx, userID, req.DayNumber, req.TaskID)
	if err != nil {
		respondChallengeError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, ch)
}

// RunTribunal forces an evaluation pass. The engine also runs it on every
// trade change; this endpoint exists for pull-to-refresh.
func (h *ChallengeHandler) RunTribunal(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID := mux.Vars(r)["userID"]

	if _, err := h.challengeService.CheckDayRollover(ctx, userID); err != nil {
		respondChallengeError(w, err)
		return
	}

	trades, err := h.challengeService.TradesForTribunal(ctx, userID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	changed, err := h.challengeService.RunTribunal(ctx, userID, trades)
	if err != nil {
		respondChallengeError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]bool{"changed": changed})
}

func (h *ChallengeHandler) AcknowledgeCompletion(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID := mux.Vars(r)["userID"]

	ch, err := h.challengeService.Acknowledge(ctx, userID)
	if err != nil {
		respondChallengeError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, ch)
}

func (h *ChallengeHandler) AbortChallenge(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID := mux.Vars(r)["userID"]

	if err := h.challengeService.Abort(ctx, userID); err != nil {
		respondChallengeError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"status": "aborted"})
}

func (h *ChallengeHandler) GetChallengeStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID := mux.Vars(r)["userID"]

	st, err := h.challengeService.Stats(ctx, userID)
	if err != nil {
		respondChallengeError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, st)
}

// Subscribe opens the store subscription that keeps the user's cached
// challenge fresh for the rest of the session.
func (h *ChallengeHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID := mux.Vars(r)["userID"]

	if err := h.challengeService.Init(ctx, userID); err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"status": "subscribed"})
}

func (h *ChallengeHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userID"]
	h.challengeService.Teardown(userID)
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "unsubscribed"})
}

func respondChallengeError(w http.ResponseWriter, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		respondWithError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, services.ErrNoActiveChallenge):
		respondWithError(w, http.StatusNotFound, "No active challenge")
	case errors.Is(err, services.ErrInvalidOperation):
		respondWithError(w, http.StatusConflict, err.Error())
	default:
		respondWithError(w, http.StatusInternalServerError, err.Error())
	}
}
