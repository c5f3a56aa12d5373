package handler

import (
	"net/http"

	"signage-studio/internal/model"
	"signage-studio/internal/service"
)

type TimelineHandler struct {
	service *service.TimelineService
}

func NewTimelineHandler(service *service.TimelineService) *TimelineHandler {
	return &TimelineHandler{service: service}
}

func (h *TimelineHandler) List(w http.ResponseWriter, r *http.Request) {
	campaignID, err := pathID(r, "campaign_id")
	if err != nil {
		writeError(w, err)
		return
	}

	data, err := h.service.List(r.Context(), campaignID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, data, &model.Meta{Total: len(data.Timelines)})
}

func (h *TimelineHandler) Delete(w http.ResponseWriter, r *http.Request) {
	timelineID, err := pathID(r, "timeline_id")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.service.Delete(r.Context(), timelineID); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, model.TimelineDeletedPayload{TimelineID: timelineID}, nil)
}
