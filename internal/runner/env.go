package runner

import (
	"os"
	"sort"
	"strings"
)

// isolationEnv is forced onto every interpreter child so its behaviour does
// not depend on ambient terminal or session state. Unbuffered output is
// essential: the isolated executor reads output from files, so the child
// must flush promptly.
var isolationEnv = map[string]string{
	"PYTHONUNBUFFERED":        "1",
	"PYTHONDONTWRITEBYTECODE": "1",
	"PYTHONIOENCODING":        "utf-8",
	"PYTHONNOUSERSITE":        "1",
	"PYTHONHASHSEED":          "0",
	"PYTHONSTARTUP":           "",
}

// transportEnv names variables tied to the host's own MCP transport.
// A child interpreter that inherits them can misidentify itself as another
// instance of the host, so they are removed and may not be resurrected by
// caller overrides.
var transportEnv = []string{
	"PROCTOR_MCP",
	"MCP_TRANSPORT",
	"MCP_SESSION_ID",
}

// interpreterEnv builds the full environment for an interpreter child:
// the host environment, then the isolation variables, minus the transport
// variables, with caller overrides applied last. Pure given the host
// environment snapshot.
func interpreterEnv(overrides map[string]string) []string {
	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}

	for k, v := range isolationEnv {
		env[k] = v
	}
	for _, k := range transportEnv {
		delete(env, k)
	}
	for k, v := range overrides {
		if isTransportVar(k) {
			continue
		}
		env[k] = v
	}

	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}

// plainEnv builds the environment for an ordinary (non-interpreter) child:
// the host environment with caller overrides appended. nil when there are
// no overrides, letting os/exec inherit as usual.
func plainEnv(overrides map[string]string) []string {
	if len(overrides) == 0 {
		return nil
	}
	env := os.Environ()
	for k, v := range overrides {
		env = append(env, k+"="+v)
	}
	return env
}

func isTransportVar(name string) bool {
	for _, k := range transportEnv {
		if name == k {
			return true
		}
	}
	return false
}
