package dispatch

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jenkins-mcp-integ/pkg/api"
)

// Parameter access helpers. Requests arrive as map[string]any decoded from
// JSON, so numbers show up as float64 and everything needs a tolerant read.

func stringParam(req api.ActionRequest, key string) string {
	v, ok := req.Parameters[key]
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	default:
		return ""
	}
}

func boolParam(req api.ActionRequest, key string, def bool) bool {
	v, ok := req.Parameters[key]
	if !ok {
		return def
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(t))
		if err != nil {
			return def
		}
		return parsed
	default:
		return def
	}
}

func intParam(req api.ActionRequest, key string, def int) int {
	v, ok := req.Parameters[key]
	if !ok {
		return def
	}
	switch t := v.(type) {
	case float64:
		return int(t)
	case int:
		return t
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return def
		}
		return parsed
	default:
		return def
	}
}

func stringMapParam(req api.ActionRequest, key string) map[string]string {
	v, ok := req.Parameters[key]
	if !ok {
		return nil
	}
	raw, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, val := range raw {
		switch t := val.(type) {
		case string:
			out[k] = t
		case float64:
			out[k] = strconv.FormatFloat(t, 'f', -1, 64)
		case bool:
			out[k] = strconv.FormatBool(t)
		default:
			out[k] = fmt.Sprint(t)
		}
	}
	return out
}

// selectorParam reads build_number, defaulting to lastBuild when absent.
func selectorParam(req api.ActionRequest) (api.BuildSelector, error) {
	raw := stringParam(req, "build_number")
	if raw == "" {
		return api.BuildSelector{Symbolic: api.SelectorLastBuild}, nil
	}
	sel, err := api.ParseBuildSelector(raw)
	if err != nil {
		return api.BuildSelector{}, &api.DispatchError{Kind: api.KindMissingParameter, Detail: err.Error()}
	}
	return sel, nil
}
