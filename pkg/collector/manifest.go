package collector

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"devdigest/pkg/digest"
)

// LoadTasks reads the workspace task manifest and normalizes its
// entries into task seeds. The manifest is either a bare list of
// task-like objects or an object wrapping one under "tasks"; the format
// is chosen by file extension (JSON, YAML, or TOML).
//
// A missing manifest is zero tasks, silently. A malformed manifest is
// zero tasks with a warning.
func LoadTasks(path string, logger *log.Logger) []digest.Task {
	if logger == nil {
		logger = log.Default()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Printf("warn: read manifest %s: %v", path, err)
		}
		return nil
	}

	entries, err := decodeManifest(path, data)
	if err != nil {
		logger.Printf("warn: parse manifest %s: %v (treating as zero tasks)", path, err)
		return nil
	}

	tasks := make([]digest.Task, 0, len(entries))
	for _, entry := range entries {
		obj, ok := entry.(map[string]any)
		if !ok {
			logger.Printf("warn: manifest %s: skipping non-object task entry", path)
			continue
		}
		tasks = append(tasks, normalizeTask(obj))
	}
	return tasks
}

// decodeManifest unwraps both accepted manifest shapes into a flat list.
func decodeManifest(path string, data []byte) ([]any, error) {
	var doc any
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &doc)
	case ".toml":
		err = toml.Unmarshal(data, &doc)
	default:
		err = json.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, err
	}

	switch v := doc.(type) {
	case []any:
		return v, nil
	case map[string]any:
		if list, ok := v["tasks"].([]any); ok {
			return list, nil
		}
		return nil, fmt.Errorf("object manifest has no tasks list")
	default:
		return nil, fmt.Errorf("manifest is neither a list nor a tasks object")
	}
}

// taskFields are the typed attributes lifted out of a manifest entry;
// everything else folds into metadata.
var taskFields = map[string]bool{
	"id": true, "title": true, "status": true, "priority": true,
	"assignee": true, "createdAt": true, "metadata": true,
}

// normalizeTask lifts recognized, correctly typed fields into a task
// seed. Unrecognized fields fold into metadata unless the entry carries
// an explicit metadata object, in which case they are dropped.
func normalizeTask(obj map[string]any) digest.Task {
	t := digest.Task{
		ID:        stringField(obj, "id"),
		Title:     stringField(obj, "title"),
		Status:    stringField(obj, "status"),
		Priority:  stringField(obj, "priority"),
		Assignee:  stringField(obj, "assignee"),
		CreatedAt: stringField(obj, "createdAt"),
	}

	if explicit, ok := obj["metadata"].(map[string]any); ok {
		t.Metadata = stringifyMap(explicit)
		return t
	}

	extra := map[string]string{}
	for k, v := range obj {
		if taskFields[k] {
			continue
		}
		extra[k] = stringify(v)
	}
	if len(extra) > 0 {
		t.Metadata = extra
	}
	return t
}

func stringField(obj map[string]any, key string) string {
	if s, ok := obj[key].(string); ok {
		return s
	}
	return ""
}

func stringifyMap(m map[string]any) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = stringify(v)
	}
	return out
}

func stringify(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case nil:
		return ""
	default:
		if b, err := json.Marshal(x); err == nil {
			return string(b)
		}
		return fmt.Sprint(x)
	}
}
