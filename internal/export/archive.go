package export

import (
	"encoding/json"
	"os"
)

// archiveRecord is the durable form of one recognition: the metadata and
// the engine result exactly as received, so any later re-export has the
// full payload to work from.
type archiveRecord struct {
	Metadata Metadata    `json:"metadata"`
	Result   interface{} `json:"result"`
}

func writeArchive(path string, meta Metadata, raw interface{}) error {
	data, err := json.MarshalIndent(archiveRecord{Metadata: meta, Result: raw}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
