package scorer

import (
	"net/http"

	"github.com/bet0x/bm25-retrieval-service/pkg/errors"
)

// Backend names accepted by Select.
const (
	BackendAuto   = "auto"
	BackendBatch  = "batch"
	BackendScalar = "scalar"
)

// Select resolves a backend by name. "auto" prefers the batch path; callers
// treat a failure for "auto" as non-fatal and downgrade to scalar. An unknown
// explicit name is a configuration error.
func Select(name string, p Params) (Backend, error) {
	switch name {
	case BackendAuto, BackendBatch:
		return NewBatch(p), nil
	case BackendScalar:
		return NewScalar(p), nil
	default:
		return nil, errors.Newf(errors.ErrConfiguration, http.StatusInternalServerError,
			"unknown scoring backend %q (want auto, batch, or scalar)", name)
	}
}
