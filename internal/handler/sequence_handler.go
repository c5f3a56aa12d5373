package handler

import (
	"encoding/json"
	"net/http"

	"signage-studio/internal/model"
	"signage-studio/internal/service"
	"signage-studio/pkg/apierror"
)

type SequenceHandler struct {
	service *service.SequenceService
}

func NewSequenceHandler(service *service.SequenceService) *SequenceHandler {
	return &SequenceHandler{service: service}
}

func (h *SequenceHandler) List(w http.ResponseWriter, r *http.Request) {
	campaignID, err := pathID(r, "campaign_id")
	if err != nil {
		writeError(w, err)
		return
	}

	entries, err := h.service.List(r.Context(), campaignID)
	if err != nil {
		writeError(w, err)
		return
	}
	if entries == nil {
		entries = []model.SequenceEntry{}
	}

	writeSuccess(w, http.StatusOK, entries, &model.Meta{Total: len(entries)})
}

func (h *SequenceHandler) SetIndex(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	campaignID, err := pathID(r, "campaign_id")
	if err != nil {
		writeError(w, err)
		return
	}
	timelineID, err := pathID(r, "timeline_id")
	if err != nil {
		writeError(w, err)
		return
	}
	version, err := writeVersion(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var payload model.SetSequenceIndexRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	result, err := h.service.SetIndex(r.Context(), campaignID, timelineID, payload.Index, version)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, result, nil)
}

func (h *SequenceHandler) Remove(w http.ResponseWriter, r *http.Request) {
	timelineID, err := pathID(r, "timeline_id")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.service.Remove(r.Context(), timelineID); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]int64{"timeline_id": timelineID}, nil)
}
