package handler

import (
	"encoding/json"
	"net/http"

	"signage-studio/internal/model"
	"signage-studio/internal/service"
	"signage-studio/pkg/apierror"
)

type BlockHandler struct {
	service *service.BlockService
}

func NewBlockHandler(service *service.BlockService) *BlockHandler {
	return &BlockHandler{service: service}
}

func (h *BlockHandler) GetLength(w http.ResponseWriter, r *http.Request) {
	blockID, err := pathID(r, "block_id")
	if err != nil {
		writeError(w, err)
		return
	}

	length, err := h.service.Length(r.Context(), blockID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, length, nil)
}

func (h *BlockHandler) SetLength(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	blockID, err := pathID(r, "block_id")
	if err != nil {
		writeError(w, err)
		return
	}
	version, err := writeVersion(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var payload model.SetLengthRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, apierror.New("BAD_REQUEST", "invalid JSON body", "", http.StatusBadRequest))
		return
	}

	result, err := h.service.SetLength(r.Context(), blockID, payload.Length(), version)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, result, nil)
}

func (h *BlockHandler) Remove(w http.ResponseWriter, r *http.Request) {
	blockID, err := pathID(r, "block_id")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.service.RemoveFromChannel(r.Context(), blockID); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]int64{"block_id": blockID}, nil)
}
