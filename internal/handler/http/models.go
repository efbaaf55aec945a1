package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/MKhiriev/go-sync-engine/internal/logger"
	"github.com/MKhiriev/go-sync-engine/internal/predicate"
	"github.com/MKhiriev/go-sync-engine/internal/utils"
	"github.com/MKhiriev/go-sync-engine/models"
)

const (
	maxModelBodySize = 1 << 20
	whereParam       = "where"
)

type queryResponse struct {
	Items []models.Model `json:"items"`
	Count int            `json:"count"`
}

// saveModel stores the request body as the payload of {model}/{id}. The
// write is a local one and is queued for the remote.
func (h *Handler) saveModel(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)

	name, ok := h.modelName(w, r)
	if !ok {
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxModelBodySize))
	if err != nil || !isJSONObject(body) {
		log.Err(err).Str("func", "*Handler.saveModel").Msg("invalid model payload was passed")
		h.writeError(w, ErrInvalidPayload)
		return
	}

	m := models.Model{Name: name, ID: chi.URLParam(r, "id"), Payload: json.RawMessage(body)}
	if err = h.models.Save(r.Context(), m, models.InitiatorLocal); err != nil {
		log.Err(err).Str("func", "*Handler.saveModel").Str("model", m.Identity().String()).Msg("error saving model")
		h.writeError(w, err)
		return
	}

	log.Debug().Str("func", "*Handler.saveModel").Str("model", m.Identity().String()).Msg("model saved")
	utils.WriteJSON(w, m, http.StatusOK)
}

func (h *Handler) deleteModel(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)

	name, ok := h.modelName(w, r)
	if !ok {
		return
	}

	id := models.Identity{ModelName: name, ModelID: chi.URLParam(r, "id")}
	if err := h.models.Delete(r.Context(), id, models.InitiatorLocal); err != nil {
		log.Err(err).Str("func", "*Handler.deleteModel").Str("model", id.String()).Msg("error deleting model")
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getModel(w http.ResponseWriter, r *http.Request) {
	name, ok := h.modelName(w, r)
	if !ok {
		return
	}

	m, err := h.models.Get(r.Context(), models.Identity{ModelName: name, ModelID: chi.URLParam(r, "id")})
	if err != nil {
		logger.FromRequest(r).Err(err).Str("func", "*Handler.getModel").Msg("error getting model")
		h.writeError(w, err)
		return
	}

	utils.WriteJSON(w, m, http.StatusOK)
}

// queryModels lists local models of one type. The optional where parameter
// is an expression over the payload fields; every other parameter must
// equal the field it names.
func (h *Handler) queryModels(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)

	name, ok := h.modelName(w, r)
	if !ok {
		return
	}

	p, err := buildPredicate(r.URL.Query())
	if err != nil {
		log.Err(err).Str("func", "*Handler.queryModels").Msg("invalid query was passed")
		h.writeError(w, err)
		return
	}

	items, err := h.models.Query(r.Context(), name, p)
	if err != nil {
		log.Err(err).Str("func", "*Handler.queryModels").Str("model_name", name).Msg("error querying models")
		h.writeError(w, err)
		return
	}
	if items == nil {
		items = []models.Model{}
	}

	utils.WriteJSON(w, queryResponse{Items: items, Count: len(items)}, http.StatusOK)
}

// modelName returns the {model} URL parameter once the registry knows it.
func (h *Handler) modelName(w http.ResponseWriter, r *http.Request) (string, bool) {
	name := chi.URLParam(r, "model")
	if h.schemas == nil {
		return name, true
	}

	if _, err := h.schemas.Get(name); err != nil {
		logger.FromRequest(r).Err(err).Str("func", "*Handler.modelName").Str("model_name", name).Msg("unknown model type")
		h.writeError(w, err)
		return "", false
	}
	return name, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	utils.WriteJSON(w, errorResponse{Error: err.Error()}, statusFromError(err))
}

func buildPredicate(query url.Values) (models.Predicate, error) {
	var preds []models.Predicate

	if where := query.Get(whereParam); where != "" {
		p, err := predicate.Compile(where)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
		}
		preds = append(preds, p)
	}

	for field, values := range query {
		if field == whereParam {
			continue
		}
		for _, v := range values {
			preds = append(preds, predicate.FieldEquals(field, v))
		}
	}

	switch len(preds) {
	case 0:
		return nil, nil
	case 1:
		return preds[0], nil
	default:
		return predicate.All(preds...), nil
	}
}

func isJSONObject(body []byte) bool {
	body = bytes.TrimSpace(body)
	return len(body) > 0 && body[0] == '{' && json.Valid(body)
}
