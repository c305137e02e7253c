package persist

import (
	"encoding/json"
	"fmt"

	"github.com/router-for-me/FRPPanel/internal/settings"
	"github.com/router-for-me/FRPPanel/internal/store"
	log "github.com/sirupsen/logrus"
)

// DocumentVersion is the snapshot format written by this build.
const DocumentVersion = 1

// document is the on-disk snapshot layout.
type document struct {
	Version int `json:"version"`
	store.Snapshot
}

// Encode serializes snap as a snapshot document.
func Encode(snap store.Snapshot) ([]byte, error) {
	data, err := json.MarshalIndent(document{Version: DocumentVersion, Snapshot: snap}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("persist: encode: %w", err)
	}
	return data, nil
}

// Decode parses a snapshot document. Settings fields missing from the document
// take their defaults and unknown fields are ignored.
func Decode(data []byte) (store.Snapshot, error) {
	doc := document{Snapshot: store.Snapshot{Settings: settings.Defaults()}}
	if err := json.Unmarshal(data, &doc); err != nil {
		return store.Snapshot{}, fmt.Errorf("persist: decode: %w", err)
	}
	if doc.Version > DocumentVersion {
		log.Warnf("persist: snapshot version %d is newer than %d, loading known fields only", doc.Version, DocumentVersion)
	}
	return doc.Snapshot, nil
}
