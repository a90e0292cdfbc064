package httpapi

import "net/http"

func (r *Router) handlePresignPut(w http.ResponseWriter, req *http.Request) {
	key, url, err := r.documents.GetPresignedPutUrl(req.Context())
	if err != nil {
		r.log.Error(req.Context(), "presign put failed", "error", err)
		writeError(w, http.StatusInternalServerError, "presign failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"key": key, "url": url})
}

func (r *Router) handlePresignGet(w http.ResponseWriter, req *http.Request) {
	key := req.URL.Query().Get("key")
	if key == "" {
		writeError(w, http.StatusBadRequest, "key is required")
		return
	}
	url, err := r.documents.GetPresignedGetUrl(req.Context(), key)
	if err != nil {
		r.log.Error(req.Context(), "presign get failed", "key", key, "error", err)
		writeError(w, http.StatusInternalServerError, "presign failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}
