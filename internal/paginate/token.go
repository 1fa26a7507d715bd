package paginate

import (
	"encoding/base64"
	"encoding/json"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/sha1n/flea-db/internal/dberrors"
)

type tokenPayload struct {
	Binding string `json:"b"`
	Cursor  Cursor `json:"c"`
}

// Binding returns a short hash identifying a result set, built from the
// parts that define it (query, sort, generation).
func Binding(parts ...string) string {
	d := xxhash.New()
	for _, p := range parts {
		_, _ = d.WriteString(p)
		_, _ = d.Write([]byte{0})
	}
	return strconv.FormatUint(d.Sum64(), 16)
}

// EncodeToken returns an opaque token for resuming after c.
func EncodeToken(binding string, c Cursor) (string, error) {
	data, err := json.Marshal(tokenPayload{Binding: binding, Cursor: c})
	if err != nil {
		return "", dberrors.Wrap(dberrors.KindStaleCursor, err, "failed to encode cursor")
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// DecodeToken returns the cursor of a token issued for the same binding.
func DecodeToken(binding, token string) (Cursor, error) {
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, dberrors.Wrap(dberrors.KindStaleCursor, err, "malformed cursor")
	}
	var p tokenPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, dberrors.Wrap(dberrors.KindStaleCursor, err, "malformed cursor")
	}
	if p.Binding != binding {
		return nil, dberrors.New(dberrors.KindStaleCursor, "cursor belongs to another query, sort or index generation")
	}
	return p.Cursor, nil
}
