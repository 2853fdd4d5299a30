// Package history serves GET /api/broadcasts.
package history

import (
	"net/http"
	"strconv"
	"time"

	"github.com/kilianp07/teamcast/api"
	corehistory "github.com/kilianp07/teamcast/core/history"
	"github.com/kilianp07/teamcast/core/model"
)

const defaultLimit = 100

// NewHandler returns a handler querying store. Supported parameters are
// start and end (RFC3339), participant_id, group and limit.
func NewHandler(store corehistory.Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		q, err := parseQuery(r)
		if err != nil {
			api.WriteError(w, http.StatusBadRequest, model.ReasonMalformedBody, err.Error())
			return
		}
		records, err := store.Query(r.Context(), q)
		if err != nil {
			api.WriteError(w, http.StatusInternalServerError, api.ReasonUnexpected, "unexpected error")
			return
		}
		if records == nil {
			records = []corehistory.Record{}
		}
		api.WriteJSON(w, http.StatusOK, records)
	})
}

type queryError string

func (e queryError) Error() string { return string(e) }

func parseQuery(r *http.Request) (corehistory.Query, error) {
	v := r.URL.Query()
	q := corehistory.Query{ParticipantID: v.Get("participant_id"), Limit: defaultLimit}
	if s := v.Get("start"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return q, queryError("start must be RFC3339")
		}
		q.Start = t
	}
	if s := v.Get("end"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return q, queryError("end must be RFC3339")
		}
		q.End = t
	}
	if s := v.Get("group"); s != "" {
		g, ok := model.ParseGroup(s)
		if !ok {
			return q, queryError("unknown group " + s)
		}
		q.Group = g
	}
	if s := v.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return q, queryError("limit must be a non-negative integer")
		}
		q.Limit = n
	}
	return q, nil
}
