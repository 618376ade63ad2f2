package backup

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// NormalizeDocument makes hand-edited or older backups loadable before schema
// validation:
// - renames known synonyms (registration -> vehicleRegistration, aw -> awValue)
// - coerces numeric strings for awValue and hour fields
// - drops null or empty optionals
// - drops credentials carried in the settings block
//
// Required fields are never invented; a document without jobs still fails.
func NormalizeDocument(raw []byte, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	var dropped []string
	if v, ok := m["version"].(float64); ok {
		m["version"] = strconv.FormatFloat(v, 'f', -1, 64)
	}

	if jobs, ok := m["jobs"].([]any); ok {
		for i, item := range jobs {
			job, ok := item.(map[string]any)
			if !ok {
				continue
			}
			for _, d := range normalizeJob(job) {
				dropped = append(dropped, fmt.Sprintf("jobs[%d].%s", i, d))
			}
		}
	}

	if settings, ok := m["settings"].(map[string]any); ok {
		for _, k := range []string{"pin", "pinHash"} {
			if _, ok := settings[k]; ok {
				delete(settings, k)
				dropped = append(dropped, "settings."+k)
			}
		}
		for _, k := range []string{"targetHours", "absenceHours"} {
			if d, ok := coerceNumber(settings, k); !ok {
				dropped = append(dropped, "settings."+d)
			}
		}
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, dropped, fmt.Errorf("sanitize: encode: %w", err)
	}
	if len(dropped) > 0 {
		logger.Warn("backup.import.normalize", "dropped", dropped)
	}
	return out, dropped, nil
}

func normalizeJob(job map[string]any) []string {
	var dropped []string
	rename := func(from, to string) {
		if v, ok := job[from]; ok {
			if _, exists := job[to]; !exists {
				job[to] = v
			}
			delete(job, from)
			dropped = append(dropped, from+"->"+to)
		}
	}
	rename("registration", "vehicleRegistration")
	rename("reg", "vehicleRegistration")
	rename("wip", "wipNumber")
	rename("aw", "awValue")

	if d, ok := coerceNumber(job, "awValue"); !ok {
		dropped = append(dropped, d)
	}
	for _, k := range []string{"notes", "jobNumber", "dateModified", "vehicleRegistration"} {
		switch v := job[k].(type) {
		case nil:
			if _, present := job[k]; present {
				delete(job, k)
				dropped = append(dropped, k+"(null)")
			}
		case string:
			s := strings.TrimSpace(v)
			if s == "" && k != "vehicleRegistration" {
				delete(job, k)
				dropped = append(dropped, k+"(empty)")
				continue
			}
			job[k] = s
		}
	}
	if v, ok := job["wipNumber"].(float64); ok {
		job["wipNumber"] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return dropped
}

// coerceNumber turns "12.5" into 12.5 in place. ok is false when the value was
// unusable and got dropped; the returned string names what was dropped.
func coerceNumber(m map[string]any, k string) (string, bool) {
	v, present := m[k]
	if !present {
		return "", true
	}
	switch t := v.(type) {
	case float64:
		return "", true
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			m[k] = f
			return "", true
		}
	}
	delete(m, k)
	return k + "(type)", false
}
