package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"STUDYHUB_BACK-END/internal/dto"
	"STUDYHUB_BACK-END/internal/models"
	"STUDYHUB_BACK-END/internal/repository"
	"STUDYHUB_BACK-END/internal/utils"
)

// RoutinesHandler serves the personal study planner
type RoutinesHandler struct {
	routines repository.RoutineStore
}

// NewRoutinesHandler creates a new RoutinesHandler instance
func NewRoutinesHandler(routines repository.RoutineStore) *RoutinesHandler {
	return &RoutinesHandler{routines: routines}
}

// List returns the caller's routines
// @Summary List study routines
// @Tags routines
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.RoutineListResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /api/routines [get]
func (h *RoutinesHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}
	items, err := h.routines.ListRoutines(r.Context(), claims.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	out := make([]dto.RoutineResponse, 0, len(items))
	for i := range items {
		out = append(out, dto.NewRoutineResponse(&items[i]))
	}
	utils.WriteJSONResponse(w, http.StatusOK, dto.RoutineListResponse{Routines: out})
}

// Create adds a routine
// @Summary Create a study routine
// @Tags routines
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.RoutineRequest true "Routine"
// @Success 201 {object} dto.RoutineResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /api/routines [post]
func (h *RoutinesHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}
	req, ok := decodeRoutine(w, r)
	if !ok {
		return
	}

	rt := &models.Routine{UserID: claims.UserID, IsActive: true}
	applyRoutineRequest(rt, req)
	if err := h.routines.CreateRoutine(r.Context(), rt); err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusCreated, dto.NewRoutineResponse(rt))
}

// Get returns one of the caller's routines
// @Summary Get a study routine
// @Tags routines
// @Produce json
// @Security BearerAuth
// @Param id path string true "Routine ID"
// @Success 200 {object} dto.RoutineResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/routines/{id} [get]
func (h *RoutinesHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}
	rt, ok := h.ownedRoutine(w, r, claims.UserID)
	if !ok {
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, dto.NewRoutineResponse(rt))
}

// Update replaces a routine
// @Summary Update a study routine
// @Tags routines
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Routine ID"
// @Param request body dto.RoutineRequest true "Routine"
// @Success 200 {object} dto.RoutineResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/routines/{id} [put]
func (h *RoutinesHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}
	rt, ok := h.ownedRoutine(w, r, claims.UserID)
	if !ok {
		return
	}
	req, ok := decodeRoutine(w, r)
	if !ok {
		return
	}

	applyRoutineRequest(rt, req)
	if err := h.routines.UpdateRoutine(r.Context(), rt); err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, dto.NewRoutineResponse(rt))
}

// Delete removes a routine
// @Summary Delete a study routine
// @Tags routines
// @Produce json
// @Security BearerAuth
// @Param id path string true "Routine ID"
// @Success 200 {object} dto.MessageResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/routines/{id} [delete]
func (h *RoutinesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := currentUser(w, r)
	if !ok {
		return
	}
	rt, ok := h.ownedRoutine(w, r, claims.UserID)
	if !ok {
		return
	}
	if err := h.routines.DeleteRoutine(r.Context(), rt.ID, claims.UserID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, dto.MessageResponse{Message: "Routine deleted"})
}

func (h *RoutinesHandler) ownedRoutine(w http.ResponseWriter, r *http.Request, userID uuid.UUID) (*models.Routine, bool) {
	id, ok := pathUUID(w, r, "id")
	if !ok {
		return nil, false
	}
	rt, err := h.routines.GetRoutine(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return nil, false
	}
	if rt.UserID != userID {
		utils.WriteErrorResponse(w, http.StatusForbidden, "Forbidden", "not your routine")
		return nil, false
	}
	return rt, true
}

// decodeRoutine validates the body; HH:MM strings compare lexically
func decodeRoutine(w http.ResponseWriter, r *http.Request) (*dto.RoutineRequest, bool) {
	var req dto.RoutineRequest
	if !decodeBody(w, r, &req) {
		return nil, false
	}
	if req.StartTime >= req.EndTime {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Invalid request body", "start_time must be before end_time")
		return nil, false
	}
	return &req, true
}

func applyRoutineRequest(rt *models.Routine, req *dto.RoutineRequest) {
	rt.Title = req.Title
	rt.Description = req.Description
	rt.DaysOfWeek = req.DaysOfWeek
	rt.StartTime = req.StartTime
	rt.EndTime = req.EndTime
	if req.IsActive != nil {
		rt.IsActive = *req.IsActive
	}
}
