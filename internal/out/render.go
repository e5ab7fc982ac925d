package out

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/ggonzalez94/yieldscout/internal/config"
	"github.com/ggonzalez94/yieldscout/internal/model"
)

// PlainTexter is implemented by results that have a human-readable form.
type PlainTexter interface {
	PlainText() string
}

// Render writes env in the configured mode. --select paths are dotted
// ("resolution.kind", "bestOverall.project") and apply to the data payload.
func Render(w io.Writer, env model.Envelope, settings config.Settings) error {
	data := env.Data
	if len(settings.SelectFields) > 0 {
		data = selectFields(data, settings.SelectFields)
	}
	plain := settings.OutputMode == "plain"

	switch {
	case settings.ResultsOnly && plain:
		return writeBody(w, data)
	case settings.ResultsOnly:
		return writeJSON(w, data)
	case plain:
		return writePlainEnvelope(w, env, data)
	default:
		env.Data = data
		return writeJSON(w, env)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writePlainEnvelope prints a one-line meta header, the body, then any
// warnings and the error.
func writePlainEnvelope(w io.Writer, env model.Envelope, data any) error {
	header := fmt.Sprintf("success=%t command=%s", env.Success, env.Meta.Command)
	if env.Meta.Chain != "" {
		header += " chain=" + env.Meta.Chain
	}
	if env.Meta.Cache.Status != "" {
		header += " cache=" + env.Meta.Cache.Status
	}
	if _, err := fmt.Fprintln(w, header); err != nil {
		return err
	}
	if env.Error != nil {
		if _, err := fmt.Fprintf(w, "error: %s (%s, exit %d)\n", env.Error.Message, env.Error.Type, env.Error.Code); err != nil {
			return err
		}
	} else if err := writeBody(w, data); err != nil {
		return err
	}
	for _, warning := range env.Warnings {
		if _, err := fmt.Fprintln(w, "warning: "+warning); err != nil {
			return err
		}
	}
	return nil
}

func writeBody(w io.Writer, data any) error {
	if t, ok := data.(PlainTexter); ok {
		_, err := fmt.Fprintln(w, t.PlainText())
		return err
	}
	switch t := normalize(data).(type) {
	case nil:
		_, err := fmt.Fprintln(w, "null")
		return err
	case []any:
		if len(t) == 0 {
			_, err := fmt.Fprintln(w, "[]")
			return err
		}
		for _, item := range t {
			if _, err := fmt.Fprintln(w, line(item)); err != nil {
				return err
			}
		}
		return nil
	default:
		_, err := fmt.Fprintln(w, line(t))
		return err
	}
}

func selectFields(data any, fields []string) any {
	switch t := normalize(data).(type) {
	case []any:
		out := make([]map[string]any, 0, len(t))
		for _, item := range t {
			if m, ok := item.(map[string]any); ok {
				out = append(out, pick(m, fields))
			}
		}
		return out
	case map[string]any:
		return pick(t, fields)
	default:
		return t
	}
}

// pick copies the requested dotted paths out of m, keyed by the path.
func pick(m map[string]any, fields []string) map[string]any {
	out := make(map[string]any, len(fields))
	for _, field := range fields {
		if v, ok := lookup(m, strings.Split(field, ".")); ok {
			out[field] = v
		}
	}
	return out
}

func lookup(v any, path []string) (any, bool) {
	for _, key := range path {
		m, ok := v.(map[string]any)
		if !ok {
			return nil, false
		}
		if v, ok = m[key]; !ok {
			return nil, false
		}
	}
	return v, true
}

// normalize turns typed results into the generic JSON shape.
func normalize(v any) any {
	buf, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(buf, &out); err != nil {
		return v
	}
	return out
}

func line(v any) string {
	m, ok := v.(map[string]any)
	if !ok {
		buf, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(buf)
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, m[k]))
	}
	return strings.Join(parts, " ")
}
