package main

import (
	"encoding/json"
	"io"

	"github.com/hookmux/hookmux/internal/extension"
)

// extensionReport is the JSON shape of one resolved extension.
type extensionReport struct {
	Package string         `json:"package"`
	Hook    string         `json:"hook"`
	Name    string         `json:"name"`
	Fields  map[string]any `json:"fields,omitempty"`
	Value   any            `json:"value,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// resolveReport is the JSON shape of one hook resolution, partitioned into
// successfully loaded extensions and load failures.
type resolveReport struct {
	Hook   string            `json:"hook"`
	Loaded []extensionReport `json:"loaded"`
	Failed []extensionReport `json:"failed"`
	Error  string            `json:"error,omitempty"`
}

func buildResolveReport(hook string, exts []extension.Extension) resolveReport {
	report := resolveReport{
		Hook:   hook,
		Loaded: []extensionReport{},
		Failed: []extensionReport{},
	}
	for _, ext := range exts {
		er := extensionReport{
			Package: ext.PackageID,
			Hook:    ext.Hook,
			Name:    ext.Name,
			Fields:  ext.Fields,
		}
		if extension.IsErrored(ext) {
			er.Error = ext.Err().Error()
			report.Failed = append(report.Failed, er)
			continue
		}
		er.Value = ext.Value()
		report.Loaded = append(report.Loaded, er)
	}
	return report
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeJSONLine emits v as a single compact line, for streaming output.
func writeJSONLine(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}
