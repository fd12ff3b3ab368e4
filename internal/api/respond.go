package api

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"apptrackr/internal/common/errors"
	"apptrackr/internal/common/validation"
	"apptrackr/internal/store"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// readValidated reads the body, checks it against schema and decodes it into
// dst.
func readValidated(r *http.Request, schema *validation.Schema, dst interface{}) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return errors.NewValidationError("could not read request body")
	}
	if result := schema.ValidateJSON(body); !result.Valid {
		return errors.NewValidationError(strings.Join(result.GetErrorMessages(), "; "))
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return errors.NewValidationError(err.Error())
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.NewNotFoundError("Application")
	}
	return id, nil
}

// storeError maps store failures onto API errors.
func storeError(op string, err error) error {
	if stderrors.Is(err, store.ErrNotFound) {
		return errors.NewNotFoundError("Application")
	}
	return errors.NewDatabaseQueryFailedError(op, err)
}
